// Package sync runs the background notification refresh loop and bridges
// its results into the Bubble Tea runtime.
package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/api"
	"github.com/ndinh/deckhand/internal/model"
)

// FeedSource fetches the authoritative feed snapshot. *api.Client
// satisfies it; tests substitute a fake.
type FeedSource interface {
	RefreshFeed(ctx context.Context) (*model.FeedSnapshot, error)
}

// RefreshResultMsg is a tea.Msg sent when one refresh attempt completes.
// Transient errors carry Err and are otherwise silent (the next tick
// retries); session expiry is called out separately so the UI can show
// the re-authentication affordance.
type RefreshResultMsg struct {
	Snapshot       *model.FeedSnapshot
	Err            error
	SessionExpired bool
}

// fetchTimeout bounds a single refresh request.
const fetchTimeout = 20 * time.Second

// Refresher polls the feed on a fixed interval and on demand. The
// interval tick and a manual trigger may overlap in flight; the store
// applies whichever resolves last.
type Refresher struct {
	source    FeedSource
	interval  time.Duration
	log       *zap.Logger
	resultCh  chan RefreshResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
}

// New creates a Refresher polling the source every interval.
func New(source FeedSource, interval time.Duration, log *zap.Logger) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		source:    source,
		interval:  interval,
		log:       log,
		resultCh:  make(chan RefreshResultMsg, 16),
		triggerCh: make(chan struct{}, 16),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the refresh loop and returns a subscription command that
// delivers the first result to the Bubble Tea runtime. An immediate fetch
// runs before the first tick. Calling Start while the loop is already
// running returns nil: the existing subscription chain stays the sole
// consumer, so repeated starts never stack up blocked waiters.
func (r *Refresher) Start() tea.Cmd {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	go r.loop()
	return r.waitForResult()
}

// Stop halts the refresh loop. Must be called on teardown so the ticker
// goroutine is not leaked.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
}

// Refresh requests an immediate fetch, used when the notification panel
// opens. It never blocks; if a trigger is already queued the extra one
// is dropped.
func (r *Refresher) Refresh() tea.Cmd {
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// WaitForNextResult returns a command that waits for the next refresh
// result. Call it after handling each RefreshResultMsg to keep the
// subscription alive.
func (r *Refresher) WaitForNextResult() tea.Cmd {
	return r.waitForResult()
}

func (r *Refresher) loop() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.fetch()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.fetch()
		case <-r.triggerCh:
			r.fetch()
		}
	}
}

// fetch performs one refresh attempt and reports the outcome.
func (r *Refresher) fetch() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	snap, err := r.source.RefreshFeed(ctx)
	if err != nil {
		if api.IsAuthError(err) {
			r.log.Warn("feed refresh rejected: session expired", zap.Error(err))
			r.sendResult(RefreshResultMsg{Err: err, SessionExpired: true})
			return
		}
		// Transient failure: stay quiet, the next tick retries.
		r.log.Debug("feed refresh failed", zap.Error(err))
		r.sendResult(RefreshResultMsg{Err: err})
		return
	}

	r.sendResult(RefreshResultMsg{Snapshot: snap})
}

// sendResult delivers a result without ever blocking the loop.
func (r *Refresher) sendResult(msg RefreshResultMsg) {
	select {
	case r.resultCh <- msg:
	default:
	}
}

// waitForResult returns a tea.Cmd that blocks on the result channel.
func (r *Refresher) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-r.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

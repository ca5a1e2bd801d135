// deckstub runs the in-memory development backend on localhost so the
// TUI can be exercised without a real deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8913", "listen address")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("building logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	baseURL := fmt.Sprintf("http://localhost%s", *addr)
	s := stub.New(*addr, baseURL, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("stub server failed: %v", err)
		}
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Stop(ctx); err != nil {
			log.Fatalf("shutdown failed: %v", err)
		}
	}
}

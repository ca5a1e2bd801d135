package stub

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ndinh/deckhand/internal/model"
)

// errorBody is the JSON error envelope the client expects.
type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Message: message})
}

// bearerToken extracts the Authorization bearer token, if any.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// authUser resolves the request's session, writing a 401 when absent.
func (s *Server) authUser(w http.ResponseWriter, r *http.Request) (model.User, string, bool) {
	token := bearerToken(r)
	user, ok := s.state.userByToken(token)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated")
		return model.User{}, "", false
	}
	return user, token, true
}

// requireRole gates admin endpoints. Missing role means 403, not 404;
// visibility filtering is the client's job, authorization is the
// server's.
func (s *Server) requireRole(w http.ResponseWriter, user model.User, role model.Role) bool {
	if user.HasRole(role) {
		return true
	}
	writeError(w, http.StatusForbidden, "forbidden")
	return false
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, token, ok := s.authUser(w, r)
	if !ok {
		return
	}
	s.state.dropSession(token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.state.feed(user.ID))
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	s.state.markRead(user.ID, chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	s.state.markAllRead(user.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	filter := model.NotificationFilter(r.URL.Query().Get("filter"))
	if filter != model.FilterUnread {
		filter = model.FilterAll
	}

	writeJSON(w, http.StatusOK, s.state.page(user.ID, page, filter))
}

// sendRequest mirrors the client's send payload.
type sendRequest struct {
	UserID     string `json:"user_id"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	ActionURL  string `json:"action_url"`
	ActionText string `json:"action_text"`
}

// validateSend returns Laravel-shaped field errors for a bad payload.
func validateSend(req sendRequest, needRecipient bool) map[string][]string {
	fields := map[string][]string{}
	if strings.TrimSpace(req.Title) == "" {
		fields["title"] = []string{"The title field is required."}
	}
	if strings.TrimSpace(req.Message) == "" {
		fields["message"] = []string{"The message field is required."}
	}
	if needRecipient && strings.TrimSpace(req.UserID) == "" {
		fields["user_id"] = []string{"The user id field is required."}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (req sendRequest) data() model.NotificationData {
	return model.NotificationData{
		Title:      strings.TrimSpace(req.Title),
		Message:    strings.TrimSpace(req.Message),
		Type:       req.Type,
		ActionURL:  req.ActionURL,
		ActionText: req.ActionText,
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	if !s.requireRole(w, user, model.RoleAdmin) {
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if fields := validateSend(req, true); fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "The given data was invalid.",
			Errors:  fields,
		})
		return
	}

	if _, ok := s.state.userByID(req.UserID); !ok {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "The given data was invalid.",
			Errors:  map[string][]string{"user_id": {"The selected user id is invalid."}},
		})
		return
	}

	s.state.send(req.UserID, req.data())
	s.log.Info("notification sent",
		zap.String("by", user.ID), zap.String("to", req.UserID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	if !s.requireRole(w, user, model.RoleSuperadmin) {
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if fields := validateSend(req, false); fields != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Message: "The given data was invalid.",
			Errors:  fields,
		})
		return
	}

	s.state.broadcast(req.data())
	s.log.Info("notification broadcast", zap.String("by", user.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}
	if !s.requireRole(w, user, model.RoleAdmin) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": s.state.users(),
	})
}

func (s *Server) handleDeviceCode(w http.ResponseWriter, r *http.Request) {
	deviceCode, userCode, expiresIn, interval := s.state.startDevice()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_code":      deviceCode,
		"user_code":        userCode,
		"verification_uri": s.baseURL + "/device",
		"expires_in":       expiresIn,
		"interval":         interval,
	})
}

func (s *Server) handleDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceCode string `json:"device_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	token, oauthErr := s.state.pollDevice(req.DeviceCode)
	if oauthErr != "" {
		writeJSON(w, http.StatusOK, map[string]string{"error": oauthErr})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// handleDeviceResolve stands in for the browser approval page: a seeded
// token plus a user code approves (or denies) the pending grant.
func (s *Server) handleDeviceResolve(w http.ResponseWriter, r *http.Request) {
	user, _, ok := s.authUser(w, r)
	if !ok {
		return
	}

	var req struct {
		UserCode string `json:"user_code"`
		Approve  bool   `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if !s.state.resolveUserCode(req.UserCode, user.ID, req.Approve) {
		writeError(w, http.StatusNotFound, "unknown user code")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

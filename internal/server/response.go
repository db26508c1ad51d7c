package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lox/pokertables/internal/auth"
	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/registry"
)

const (
	messageSuccess = "success"
	messageError   = "error"
)

// errorBody is the envelope of every rejected request
type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Content string `json:"content"`
}

var errBadRequest = errors.New("bad request")

// errorClass maps a rejection to an HTTP status and stable code
type errorClass struct {
	err    error
	status int
	code   string
}

var errorClasses = []errorClass{
	{registry.ErrTableNotFound, http.StatusNotFound, "table_not_found"},
	{game.ErrParticipantNotFound, http.StatusNotFound, "participant_not_found"},
	{game.ErrSeatEmpty, http.StatusNotFound, "seat_empty"},
	{game.ErrSeatTaken, http.StatusConflict, "seat_taken"},
	{game.ErrGameNotJoinable, http.StatusConflict, "game_not_joinable"},
	{game.ErrNotYourTurn, http.StatusConflict, "not_your_turn"},
	{game.ErrPlayerInactive, http.StatusConflict, "player_inactive"},
	{game.ErrHandNotRunning, http.StatusConflict, "hand_not_running"},
	{game.ErrTooFewPlayers, http.StatusConflict, "too_few_players"},
	{game.ErrNotAllReady, http.StatusConflict, "not_all_ready"},
	{game.ErrBetTooSmall, http.StatusUnprocessableEntity, "bet_too_small"},
	{game.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{game.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{game.ErrSeatOutOfRange, http.StatusUnprocessableEntity, "seat_out_of_range"},
	{game.ErrInvalidConfig, http.StatusUnprocessableEntity, "invalid_config"},
	{game.ErrUnknownAction, http.StatusBadRequest, "unknown_action"},
	{auth.ErrRevoked, http.StatusUnauthorized, "token_revoked"},
	{auth.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{errForbidden, http.StatusForbidden, "forbidden"},
	{errBadRequest, http.StatusBadRequest, "bad_request"},
}

func classify(err error) (int, string) {
	for _, c := range errorClasses {
		if errors.Is(err, c.err) {
			return c.status, c.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeSuccess writes {"message": "success", ...fields}
func writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = messageSuccess
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorBody{Message: messageError, Code: code, Content: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // Ignore write errors to a gone client
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}
	return nil
}

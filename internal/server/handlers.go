package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lox/pokertables/internal/game"
)

// CreateGameRequest is the body of POST /games. BetTime is in seconds.
type CreateGameRequest struct {
	SeatsCount     int   `json:"seats_count"`
	SmallBlind     int   `json:"small_blind"`
	BigBlind       int   `json:"big_blind"`
	InitialBalance int   `json:"initial_balance"`
	BetTime        int64 `json:"bet_time"`
}

// JoinGameRequest is the body of POST /games/{id}/join
type JoinGameRequest struct {
	PlayerName     string `json:"player_name"`
	ChosenSeat     int    `json:"chosen_seat"`
	AppearanceType int    `json:"appearance_type"`
	Ready          bool   `json:"ready"`
}

// SetReadyRequest is the body of POST /games/{id}/ready
type SetReadyRequest struct {
	NewReadyState bool `json:"new_ready_state"`
}

// ActionRequest is the body of POST /games/{id}/action. Bet is required for
// bets and raises and ignored otherwise.
type ActionRequest struct {
	Action string `json:"action"`
	Bet    *int   `json:"bet,omitempty"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.registry.Create(game.Config{
		Capacity:       req.SeatsCount,
		SmallBlind:     req.SmallBlind,
		BigBlind:       req.BigBlind,
		InitialBalance: req.InitialBalance,
		BetTime:        time.Duration(req.BetTime) * time.Second,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"game_id": id})
}

func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"games": s.registry.List()})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinGameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "gameID")
	pid, err := s.registry.Join(id, req.ChosenSeat, req.PlayerName, game.JoinOptions{
		Appearance: req.AppearanceType,
		Ready:      req.Ready,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.tokens.Issue(id, string(pid))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("issue token for seat %d: %w", req.ChosenSeat, err))
		return
	}
	writeSuccess(w, map[string]any{
		"participant_id": pid,
		"seat":           req.ChosenSeat,
		"token":          token,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	var req SetReadyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.registry.SetReady(chi.URLParam(r, "gameID"), participantFrom(r.Context()), req.NewReadyState)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, nil)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := s.registry.State(chi.URLParam(r, "gameID"), participantFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, map[string]any{"game_state": snap})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	kind, err := game.ParseActionKind(req.Action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	amount := 0
	if kind == game.Bet {
		if req.Bet == nil {
			s.writeError(w, r, fmt.Errorf("%w: bet requires an amount", game.ErrInvalidAmount))
			return
		}
		amount = *req.Bet
	}

	if err := s.registry.Act(chi.URLParam(r, "gameID"), participantFrom(r.Context()), kind, amount); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, nil)
}

func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	seat, err := s.registry.Quit(id.TableID, game.ParticipantID(id.ParticipantID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.tokens.Revoke(id)
	writeSuccess(w, map[string]any{"seat": seat})
}

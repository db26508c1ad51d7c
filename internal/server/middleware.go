package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lox/pokertables/internal/auth"
	"github.com/lox/pokertables/internal/game"
	"github.com/lox/pokertables/internal/gameid"
	"github.com/lox/pokertables/internal/registry"
)

var errForbidden = errors.New("token belongs to another table")

type identityKey struct{}

// identityFrom returns the caller authenticated by the token middleware
func identityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok
}

// participantFrom returns the caller's participant id, empty for anonymous callers
func participantFrom(ctx context.Context) game.ParticipantID {
	if id, ok := identityFrom(ctx); ok {
		return game.ParticipantID(id.ParticipantID)
	}
	return ""
}

// bearerToken extracts the session token from the Authorization header or,
// for websocket upgrades, the token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// validGameID answers 404 for ids the registry could never have issued,
// before any token is checked against them
func (s *Server) validGameID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "gameID")
		if err := gameid.Validate(id); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: %s: %v", registry.ErrTableNotFound, id, err))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(r *http.Request) (*auth.Identity, error) {
	id, err := s.tokens.Validate(r.Context(), bearerToken(r))
	if err != nil {
		return nil, err
	}
	if table := chi.URLParam(r, "gameID"); id.TableID != table {
		return nil, fmt.Errorf("%w: %s", errForbidden, table)
	}
	return id, nil
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.authenticate(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, id)))
	})
}

// optionalToken authenticates the caller when a token is present and lets
// anonymous requests through for the public view.
func (s *Server) optionalToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bearerToken(r) == "" {
			next.ServeHTTP(w, r)
			return
		}
		s.requireToken(next).ServeHTTP(w, r)
	})
}

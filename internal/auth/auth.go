// Package auth issues and validates the session tokens handed out on join.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "pokertables"

var (
	// ErrInvalidToken indicates the token is malformed, expired or forged.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrRevoked indicates the token was valid but its participant quit.
	ErrRevoked = errors.New("auth: token revoked")
)

// Identity is the caller a token speaks for
type Identity struct {
	TableID       string `json:"table_id"`
	ParticipantID string `json:"participant_id"`
	TokenID       string `json:"token_id"`
}

// Validator validates session tokens.
type Validator interface {
	// Validate checks a token and returns the identity it carries.
	// Returns:
	//   - (*Identity, nil) if the token is valid
	//   - (nil, ErrInvalidToken) if it is malformed, expired or forged
	//   - (nil, ErrRevoked) if it was revoked
	Validate(ctx context.Context, token string) (*Identity, error)
}

// Claims is the JWT payload of a session token
type Claims struct {
	TableID       string `json:"tid"`
	ParticipantID string `json:"pid"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 session tokens and tracks revocations. It implements
// Validator.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  quartz.Clock

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewIssuer creates an issuer. A zero ttl issues tokens that never expire.
func NewIssuer(secret string, ttl time.Duration, clock quartz.Clock) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("auth: empty signing secret")
	}
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		clock:   clock,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue returns a signed token for a participant at a table
func (i *Issuer) Issue(tableID, participantID string) (string, error) {
	now := i.clock.Now()
	claims := Claims{
		TableID:       tableID,
		ParticipantID: participantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   issuer,
			Subject:  participantID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if i.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return i.clock.Now() }),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.TableID == "" || claims.ParticipantID == "" {
		return nil, ErrInvalidToken
	}

	i.mu.Lock()
	_, revoked := i.revoked[claims.ID]
	i.mu.Unlock()
	if revoked {
		return nil, ErrRevoked
	}

	return &Identity{
		TableID:       claims.TableID,
		ParticipantID: claims.ParticipantID,
		TokenID:       claims.ID,
	}, nil
}

// Revoke rejects the identity's token from now on
func (i *Issuer) Revoke(id *Identity) {
	now := i.clock.Now()

	i.mu.Lock()
	defer i.mu.Unlock()

	// entries only need to outlive the token itself
	for jti, until := range i.revoked {
		if !until.IsZero() && now.After(until) {
			delete(i.revoked, jti)
		}
	}

	var until time.Time
	if i.ttl > 0 {
		until = now.Add(i.ttl)
	}
	i.revoked[id.TokenID] = until
}

// Package session derives the session state from the stored credential and
// decides, per navigation, whether a console route may render.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"invoice-console/internal/repository"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateAuthenticated State = "authenticated"
	StateExpired       State = "expired"
)

const (
	// LoginPath is the only route that does not require a session.
	LoginPath = "/login"
	// HomePath is where an authenticated actor lands.
	HomePath = "/"
)

var (
	// ErrMalformedToken is returned when the credential is not a decodable JWT.
	ErrMalformedToken = errors.New("malformed token")
	// ErrMissingExpiry is returned when the credential carries no exp claim.
	ErrMissingExpiry = errors.New("token has no expiry")
)

// Decision is the outcome of evaluating a route against a session state.
// Redirect is empty when no navigation is required.
type Decision struct {
	Render   bool
	Redirect string
	Clear    bool
}

// IsPublic reports whether path can be visited without a session.
func IsPublic(path string) bool {
	return path == LoginPath
}

// Evaluate is the guard's transition table. It performs no side effects.
func Evaluate(state State, path string) Decision {
	if IsPublic(path) {
		switch state {
		case StateAuthenticated:
			return Decision{Redirect: HomePath}
		case StateExpired:
			return Decision{Render: true, Clear: true}
		default:
			return Decision{Render: true}
		}
	}

	switch state {
	case StateAuthenticated:
		return Decision{Render: true}
	case StateExpired:
		return Decision{Redirect: LoginPath, Clear: true}
	default:
		return Decision{Redirect: LoginPath}
	}
}

// ExpiresAt decodes the exp claim of token without verifying its signature;
// the console never holds the backend's signing key.
func ExpiresAt(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Guard reads the credential from the token store and applies decisions.
type Guard struct {
	store  repository.TokenStore
	now    func() time.Time
	logger *logrus.Entry
}

type Option func(*Guard)

// WithClock overrides the time source used to compare expiry.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func WithLogger(logger *logrus.Entry) Option {
	return func(g *Guard) { g.logger = logger }
}

func NewGuard(store repository.TokenStore, opts ...Option) *Guard {
	g := &Guard{
		store:  store,
		now:    time.Now,
		logger: logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State derives the session state from the stored credential.
func (g *Guard) State(ctx context.Context) (State, error) {
	token, ok, err := g.store.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	if !ok || token == "" {
		return StateAnonymous, nil
	}

	exp, err := ExpiresAt(token)
	if err != nil {
		g.logger.WithError(err).Debug("credential rejected")
		return StateExpired, nil
	}
	if exp.Before(g.now()) {
		return StateExpired, nil
	}
	return StateAuthenticated, nil
}

// Check evaluates path for the current session and performs the storage
// side effect of the decision. Navigation is left to the caller.
func (g *Guard) Check(ctx context.Context, path string) (Decision, error) {
	state, err := g.State(ctx)
	if err != nil {
		return Decision{}, err
	}

	d := Evaluate(state, path)
	if d.Clear {
		if err := g.store.Clear(ctx); err != nil {
			return Decision{}, fmt.Errorf("clear credential: %w", err)
		}
		g.logger.WithField("path", path).Info("session expired, credential cleared")
	}
	return d, nil
}

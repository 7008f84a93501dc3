// Package onboarding checks, once per dashboard mount, whether the signed-in
// actor has registered a company.
package onboarding

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"invoice-console/internal/domain"
)

type State string

const (
	StateUnknown      State = "unknown"
	StateRegistered   State = "registered"
	StateUnregistered State = "unregistered"
)

// RegisterCompanyPath is where unregistered actors are sent.
const RegisterCompanyPath = "/register-company"

// ErrUnmounted is reported when the view was torn down before the check finished.
var ErrUnmounted = errors.New("view unmounted before onboarding check completed")

// ProfileFetcher loads the actor's company profile; nil means none exists.
type ProfileFetcher interface {
	Get(ctx context.Context) (*domain.Company, error)
}

// Result is the resolved gate outcome. Err holds the fetch failure, if any,
// for logging; it never changes the outcome.
type Result struct {
	State    State
	Company  *domain.Company
	Redirect string
	Err      error
}

// Render reports whether the dashboard may render.
func (r Result) Render() bool {
	return r.State == StateRegistered
}

// Gate resolves the onboarding state with a single profile request and
// remembers it for its own lifetime. A failed request counts as
// unregistered: the gate has no partial-failure path.
type Gate struct {
	profiles ProfileFetcher
	logger   *logrus.Entry

	once      sync.Once
	mu        sync.Mutex
	result    Result
	unmounted bool
}

func NewGate(profiles ProfileFetcher, logger *logrus.Entry) *Gate {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Gate{
		profiles: profiles,
		logger:   logger,
		result:   Result{State: StateUnknown},
	}
}

// State returns the current state without triggering a request.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result.State
}

// Resolve performs the profile check on first call and returns the
// memoized outcome afterwards.
func (g *Gate) Resolve(ctx context.Context) Result {
	g.once.Do(func() {
		company, err := g.profiles.Get(ctx)
		res := classify(company, err)

		g.mu.Lock()
		defer g.mu.Unlock()
		if g.unmounted {
			g.logger.Debug("onboarding result dropped after unmount")
			return
		}
		if res.Err != nil {
			g.logger.WithError(res.Err).Warn("company check failed, treating as unregistered")
		}
		g.result = res
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.unmounted {
		return Result{State: g.result.State, Err: ErrUnmounted}
	}
	return g.result
}

// Unmount tears the gate down. Results arriving afterwards are discarded.
func (g *Gate) Unmount() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unmounted = true
}

func classify(company *domain.Company, err error) Result {
	if err != nil {
		return Result{State: StateUnregistered, Redirect: RegisterCompanyPath, Err: err}
	}
	if company == nil || company.IsZero() {
		return Result{State: StateUnregistered, Redirect: RegisterCompanyPath}
	}
	return Result{State: StateRegistered, Company: company}
}

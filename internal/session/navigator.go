package session

import (
	"context"
	"errors"
	"sync"
)

// maxRedirects bounds one navigation. The transition table settles in at
// most two hops; anything longer means the table and the routes disagree.
const maxRedirects = 4

// ErrRedirectLoop is returned when a navigation does not settle.
var ErrRedirectLoop = errors.New("redirect loop")

// Outcome describes where a navigation settled.
type Outcome struct {
	Location  string
	Render    bool
	Redirects []string
}

// Navigator holds the current location of one console session and
// interprets guard decisions. A redirect is issued only when its target
// differs from the current location, so re-evaluating with an unchanged
// credential never navigates again.
type Navigator struct {
	guard    *Guard
	navigate func(path string)

	mu       sync.Mutex
	location string
}

// NewNavigator returns a navigator that calls navigate for every redirect
// it issues. navigate may be nil.
func NewNavigator(guard *Guard, navigate func(path string)) *Navigator {
	if navigate == nil {
		navigate = func(string) {}
	}
	return &Navigator{guard: guard, navigate: navigate}
}

// Location returns the path the navigator last settled on.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Navigate moves to path and follows guard redirects until the location is stable.
func (n *Navigator) Navigate(ctx context.Context, path string) (Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.location = path
	return n.settle(ctx)
}

// Refresh re-evaluates the current location, e.g. after the credential changed.
func (n *Navigator) Refresh(ctx context.Context) (Outcome, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.location == "" {
		n.location = HomePath
	}
	return n.settle(ctx)
}

func (n *Navigator) settle(ctx context.Context) (Outcome, error) {
	out := Outcome{Location: n.location}
	for hops := 0; ; hops++ {
		d, err := n.guard.Check(ctx, n.location)
		if err != nil {
			return out, err
		}
		if d.Redirect == "" || d.Redirect == n.location {
			out.Location = n.location
			out.Render = d.Render
			return out, nil
		}
		if hops == maxRedirects {
			return out, ErrRedirectLoop
		}

		n.location = d.Redirect
		out.Redirects = append(out.Redirects, d.Redirect)
		n.navigate(d.Redirect)
	}
}

package router

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/malonaz/aichat/internal/auth"
)

// View is the screen shown to the user.
type View int

const (
	ViewLoading View = iota
	ViewSignIn
	ViewSignUp
	ViewEmailVerification
	ViewAuthenticated
)

var viewNames = map[View]string{
	ViewLoading:           "loading",
	ViewSignIn:            "sign-in",
	ViewSignUp:            "sign-up",
	ViewEmailVerification: "email-verification",
	ViewAuthenticated:     "authenticated",
}

// String implements the fmt.Stringer interface.
func (v View) String() string {
	if name, ok := viewNames[v]; ok {
		return name
	}
	return "unknown"
}

// Identity is the identity client as seen by the router.
type Identity interface {
	Status() auth.Status
	Reload(ctx context.Context) error
	SignOut(ctx context.Context) error
}

// Resolve returns the view for an identity status and the current unauthenticated screen.
// The authenticated view requires both the authenticated flag and a user profile.
func Resolve(status auth.Status, authView View) View {
	switch {
	case status.IsLoading:
		return ViewLoading
	case status.IsAuthenticated && status.User != nil:
		return ViewAuthenticated
	}
	switch authView {
	case ViewSignUp, ViewEmailVerification:
		return authView
	default:
		return ViewSignIn
	}
}

// Router decides which view is shown.
type Router struct {
	identity Identity

	mu       sync.Mutex
	status   auth.Status
	authView View
}

// New instantiates and returns a new router showing the sign-in screen when unauthenticated.
func New(identity Identity) *Router {
	return &Router{identity: identity, status: identity.Status(), authView: ViewSignIn}
}

// View returns the view to show.
func (r *Router) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Resolve(r.status, r.authView)
}

// Status returns the last observed identity status.
func (r *Router) Status() auth.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// SetStatus records an identity status change.
func (r *Router) SetStatus(status auth.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// ShowSignUp navigates from the sign-in screen to the sign-up screen.
func (r *Router) ShowSignUp() {
	r.navigate(ViewSignIn, ViewSignUp)
}

// ShowSignIn navigates from the sign-up screen to the sign-in screen.
func (r *Router) ShowSignIn() {
	r.navigate(ViewSignUp, ViewSignIn)
}

// SignUpSucceeded shows the email verification screen after a successful sign-up.
func (r *Router) SignUpSucceeded() {
	r.navigate(ViewSignUp, ViewEmailVerification)
}

func (r *Router) navigate(from, to View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.authView == from {
		r.authView = to
	}
}

// BackToSignIn signs out and shows the sign-in screen. The screen changes even if signing out fails.
func (r *Router) BackToSignIn(ctx context.Context) error {
	err := r.identity.SignOut(ctx)
	r.mu.Lock()
	r.authView = ViewSignIn
	r.status = r.identity.Status()
	r.mu.Unlock()
	return errors.Wrap(err, "signing out")
}

// Refresh starts over from the sign-in screen and has the identity client re-evaluate the session.
func (r *Router) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.authView = ViewSignIn
	r.mu.Unlock()

	err := r.identity.Reload(ctx)
	r.SetStatus(r.identity.Status())
	return errors.Wrap(err, "reloading session")
}

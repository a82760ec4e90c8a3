// Package auth exposes the signed in user as a container.
package auth

import (
	"context"
	"time"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xcontext"
	"github.com/looplj/firelive/state"
)

const sdkName = "auth"

// User is the signed in account.
type User struct {
	UID           string         `json:"uid" yaml:"uid"`
	Email         string         `json:"email,omitempty" yaml:"email,omitempty"`
	EmailVerified bool           `json:"email_verified" yaml:"email_verified"`
	DisplayName   string         `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	PhotoURL      string         `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
	PhoneNumber   string         `json:"phone_number,omitempty" yaml:"phone_number,omitempty"`
	ProviderID    string         `json:"provider_id,omitempty" yaml:"provider_id,omitempty"`
	Disabled      bool           `json:"disabled" yaml:"disabled"`
	Claims        map[string]any `json:"claims,omitempty" yaml:"claims,omitempty"`
	LastSignIn    time.Time      `json:"last_sign_in" yaml:"last_sign_in"`
}

// Auth is the backend used by UserState.
type Auth interface {
	// OnAuthStateChanged reports the current user, nil when signed out, and
	// every later change.
	OnAuthStateChanged(ctx context.Context, onChange func(*User), onError func(error)) state.Unsubscribe

	SignOut(ctx context.Context) error
}

type Options struct {
	Log         bool
	ErrorPolicy state.ErrorPolicy
	WatchBuffer int
}

// UserState follows the signed in user. Its value is nil while signed out
// and undefined until the backend reported the first state.
type UserState struct {
	*state.State[*User]

	auth Auth
}

func NewUserState(ctx context.Context, a Auth, opts Options) *UserState {
	so := state.Options[*User]{
		Log:         opts.Log,
		ErrorPolicy: opts.ErrorPolicy,
		WatchBuffer: opts.WatchBuffer,
	}

	a = resolve(ctx, a)
	u := &UserState{auth: a}

	if a == nil {
		u.State = state.Disconnected("UserState", sdkName, so)
		return u
	}

	u.State = state.Connect(ctx, "UserState", state.SourceFunc[*User](a.OnAuthStateChanged), so)

	return u
}

// SignedIn reports whether a user is known to be signed in.
func (u *UserState) SignedIn() bool {
	return u.Get() != nil
}

// SignOut signs the current user out. It does nothing without a backend.
func (u *UserState) SignOut(ctx context.Context) error {
	if u.auth == nil {
		return nil
	}

	if err := u.auth.SignOut(ctx); err != nil {
		log.Warn(ctx, "sign out failed", log.Cause(err))
		return err
	}

	return nil
}

// NewContext returns a copy of ctx carrying Auth. Adapters built with a nil
// handle look it up with FromContext.
func NewContext(ctx context.Context, h Auth) context.Context {
	return xcontext.WithValue(ctx, h)
}

// FromContext returns the Auth carried by ctx, or nil.
func FromContext(ctx context.Context) Auth {
	h, _ := xcontext.Value[Auth](ctx)
	return h
}

func resolve(ctx context.Context, h Auth) Auth {
	if h != nil {
		return h
	}

	return FromContext(ctx)
}

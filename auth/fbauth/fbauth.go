// Package fbauth implements auth.Auth on the Firebase Admin SDK. The process
// holds one session: SignIn verifies an ID token and loads the user record,
// SignOut drops the session and optionally revokes refresh tokens.
package fbauth

import (
	"context"
	"sync"
	"time"

	fireauth "firebase.google.com/go/v4/auth"

	"github.com/looplj/firelive/auth"
	"github.com/looplj/firelive/internal/fberr"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/watcher"
	"github.com/looplj/firelive/state"
)

// Client is the subset of *auth.Client used by the session.
type Client interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*fireauth.Token, error)
	GetUser(ctx context.Context, uid string) (*fireauth.UserRecord, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type Config struct {
	// RevokeOnSignOut revokes the user's refresh tokens on SignOut.
	RevokeOnSignOut bool `conf:"revoke_on_sign_out" yaml:"revoke_on_sign_out" json:"revoke_on_sign_out"`
}

type Session struct {
	client Client
	cfg    Config

	mu      sync.Mutex
	current *auth.User
	users   *watcher.Memory[*auth.User]
}

func New(client Client, cfg Config) *Session {
	s := &Session{
		client: client,
		cfg:    cfg,
		users:  watcher.NewMemory[*auth.User](watcher.MemoryOptions{Buffer: 8, Replay: true}),
	}

	_ = s.users.Notify(context.Background(), nil)

	return s
}

// SignIn verifies idToken and makes its user the current one.
func (s *Session) SignIn(ctx context.Context, idToken string) (*auth.User, error) {
	token, err := s.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	if err != nil {
		return nil, fberr.Wrap(err)
	}

	record, err := s.client.GetUser(ctx, token.UID)
	if err != nil {
		return nil, fberr.Wrap(err)
	}

	u := toUser(record, token)

	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	_ = s.users.Notify(ctx, u)

	log.Info(ctx, "signed in", log.String("uid", u.UID))

	return u, nil
}

func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	current := s.current
	s.current = nil
	s.mu.Unlock()

	if current == nil {
		return nil
	}

	_ = s.users.Notify(ctx, nil)

	if s.cfg.RevokeOnSignOut {
		if err := s.client.RevokeRefreshTokens(ctx, current.UID); err != nil {
			return fberr.Wrap(err)
		}
	}

	log.Info(ctx, "signed out", log.String("uid", current.UID))

	return nil
}

// Current returns the signed in user, or nil.
func (s *Session) Current() *auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.current
}

func (s *Session) OnAuthStateChanged(ctx context.Context, onChange func(*auth.User), _ func(error)) state.Unsubscribe {
	ch, stop := s.users.Watch()
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		defer stop()

		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-ch:
				if !ok {
					return
				}

				onChange(u)
			}
		}
	}()

	return state.Unsubscribe(cancel)
}

func toUser(record *fireauth.UserRecord, token *fireauth.Token) *auth.User {
	u := &auth.User{
		UID:           record.UID,
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
		DisplayName:   record.DisplayName,
		PhotoURL:      record.PhotoURL,
		PhoneNumber:   record.PhoneNumber,
		ProviderID:    record.ProviderID,
		Disabled:      record.Disabled,
		Claims:        record.CustomClaims,
	}

	if token != nil {
		u.LastSignIn = time.Unix(token.AuthTime, 0).UTC()

		if token.Firebase.SignInProvider != "" {
			u.ProviderID = token.Firebase.SignInProvider
		}
	}

	return u
}

var _ auth.Auth = (*Session)(nil)

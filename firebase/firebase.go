// Package firebase builds the backend handles of a process from
// configuration.
package firebase

import (
	"context"
	"errors"
	"fmt"
	"os"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/fx"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/looplj/firelive/auth/fbauth"
	"github.com/looplj/firelive/firestore/gcp"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/watcher"
	"github.com/looplj/firelive/internal/pkg/xcache"
	"github.com/looplj/firelive/internal/pkg/xcache/live"
	"github.com/looplj/firelive/realtime/fbdb"
	"github.com/looplj/firelive/remoteconfig/fbrc"
	"github.com/looplj/firelive/sdk"
	"github.com/looplj/firelive/storage"
	"github.com/looplj/firelive/storage/afs"
	"github.com/looplj/firelive/storage/gcs"
)

var scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/firebase",
	"https://www.googleapis.com/auth/identitytoolkit",
	"https://www.googleapis.com/auth/userinfo.email",
}

// NewApp initializes the Firebase app. Without a credentials file the
// application default credentials are used.
func NewApp(ctx context.Context, cfg Config) (*firebase.App, error) {
	var opts []option.ClientOption

	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}

		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credentials: %w", err)
		}

		opts = append(opts, option.WithCredentials(creds))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		DatabaseURL:   cfg.DatabaseURL,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	return app, nil
}

// Params are the configuration sections NewHandles reads.
type Params struct {
	fx.In

	Firebase     Config
	Realtime     fbdb.Config
	Storage      StorageConfig
	RemoteConfig fbrc.Config
	Auth         fbauth.Config
	Watcher      watcher.Config
}

// Handles is a handle set together with the clients that need closing.
type Handles struct {
	sdk.Handles

	closers []func() error
}

// Close releases the clients opened by NewHandles.
func (h *Handles) Close() error {
	var errs []error

	for _, c := range h.closers {
		errs = append(errs, c())
	}

	h.closers = nil

	return errors.Join(errs...)
}

// NewHandles opens a client per enabled service. A service that fails to
// initialize is logged and left nil, so adapters report it as missing.
func NewHandles(ctx context.Context, app *firebase.App, p Params) (*Handles, error) {
	h := &Handles{}
	svc := p.Firebase.Services

	if svc.Firestore {
		if client, err := app.Firestore(ctx); err != nil {
			log.Warn(ctx, "firestore unavailable", log.Cause(err))
		} else {
			h.Firestore = gcp.New(client)
			h.closers = append(h.closers, client.Close)
		}
	}

	if svc.Database && p.Firebase.DatabaseURL != "" {
		client, err := app.Database(ctx)
		if err != nil {
			log.Warn(ctx, "realtime database unavailable", log.Cause(err))
		} else {
			events, err := watcher.New[live.Event](ctx, p.Watcher, "rtdb")
			if err != nil {
				return nil, fmt.Errorf("failed to create rtdb watcher: %w", err)
			}

			h.Database = fbdb.New(fbdb.NewClient(client), p.Realtime, events)
		}
	}

	if svc.Storage {
		st, err := newStorage(ctx, app, p.Storage)
		if err != nil {
			log.Warn(ctx, "storage unavailable", log.Cause(err))
		} else {
			h.Storage = st
		}
	}

	if svc.Auth {
		if client, err := app.Auth(ctx); err != nil {
			log.Warn(ctx, "auth unavailable", log.Cause(err))
		} else {
			h.Auth = fbauth.New(client, p.Auth)
		}
	}

	if svc.RemoteConfig {
		if client, err := app.RemoteConfig(ctx); err != nil {
			log.Warn(ctx, "remote config unavailable", log.Cause(err))
		} else {
			h.RemoteConfig = fbrc.New(client, p.RemoteConfig)
		}
	}

	log.Info(ctx, "firebase handles ready", log.Strings("services", h.Names()))

	return h, nil
}

func newStorage(ctx context.Context, app *firebase.App, cfg StorageConfig) (storage.Storage, error) {
	switch cfg.Mode {
	case StorageModeAFS:
		fs, err := afs.NewFs(ctx, cfg.AFS)
		if err != nil {
			return nil, err
		}

		return afs.New(fs, cfg.AFS.BaseURL), nil
	case StorageModeGCS, "":
		client, err := app.Storage(ctx)
		if err != nil {
			return nil, err
		}

		bucket, err := client.DefaultBucket()
		if err != nil {
			return nil, err
		}

		return gcs.New(bucket, cfg.GCS, xcache.NewFromConfig[string](cfg.Cache)), nil
	default:
		return nil, fmt.Errorf("unsupported storage mode: %q", cfg.Mode)
	}
}

// Module provides the Firebase app and handles. It expects the
// configuration sections of Params to be provided.
var Module = fx.Module("firebase",
	fx.Provide(func(cfg Config) (*firebase.App, error) {
		return NewApp(context.Background(), cfg)
	}),
	fx.Provide(func(lc fx.Lifecycle, app *firebase.App, p Params) (*Handles, error) {
		h, err := NewHandles(context.Background(), app, p)
		if err != nil {
			return nil, err
		}

		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return h.Close()
			},
		})

		return h, nil
	}),
	fx.Provide(func(h *Handles) sdk.Handles { return h.Handles }),
)

// Package sdk carries the backend handles of a program through
// context.Context. Each handle is stored with its package's NewContext, so
// adapters constructed with a nil handle find it through FromContext.
package sdk

import (
	"context"

	"github.com/looplj/firelive/auth"
	"github.com/looplj/firelive/firestore"
	"github.com/looplj/firelive/realtime"
	"github.com/looplj/firelive/remoteconfig"
	"github.com/looplj/firelive/storage"
)

// Handles is a set of optional backend handles. Fields are independent; a
// nil field means the backend is not available.
type Handles struct {
	Auth         auth.Auth
	Firestore    firestore.Firestore
	Database     realtime.Database
	Storage      storage.Storage
	RemoteConfig remoteconfig.RemoteConfig
}

// Merge returns h with every non-nil field of partial applied.
func (h Handles) Merge(partial Handles) Handles {
	if partial.Auth != nil {
		h.Auth = partial.Auth
	}

	if partial.Firestore != nil {
		h.Firestore = partial.Firestore
	}

	if partial.Database != nil {
		h.Database = partial.Database
	}

	if partial.Storage != nil {
		h.Storage = partial.Storage
	}

	if partial.RemoteConfig != nil {
		h.RemoteConfig = partial.RemoteConfig
	}

	return h
}

func (h Handles) Empty() bool {
	return h.Auth == nil && h.Firestore == nil && h.Database == nil && h.Storage == nil && h.RemoteConfig == nil
}

// Names lists the available backends.
func (h Handles) Names() []string {
	var names []string

	for _, e := range []struct {
		name string
		ok   bool
	}{
		{"auth", h.Auth != nil},
		{"firestore", h.Firestore != nil},
		{"realtimedb", h.Database != nil},
		{"storage", h.Storage != nil},
		{"remoteconfig", h.RemoteConfig != nil},
	} {
		if e.ok {
			names = append(names, e.name)
		}
	}

	return names
}

// Set replaces the handle set visible to the returned context. Nil fields
// hide handles set by a parent context.
func Set(ctx context.Context, h Handles) context.Context {
	ctx = auth.NewContext(ctx, h.Auth)
	ctx = firestore.NewContext(ctx, h.Firestore)
	ctx = realtime.NewContext(ctx, h.Database)
	ctx = storage.NewContext(ctx, h.Storage)

	return remoteconfig.NewContext(ctx, h.RemoteConfig)
}

// Update merges partial onto the set visible to ctx and returns the derived
// context along with the merged set.
func Update(ctx context.Context, partial Handles) (context.Context, Handles) {
	merged := Get(ctx).Merge(partial)
	return Set(ctx, merged), merged
}

// Get returns the handle set visible to ctx, or the zero set.
func Get(ctx context.Context) Handles {
	return Handles{
		Auth:         auth.FromContext(ctx),
		Firestore:    firestore.FromContext(ctx),
		Database:     realtime.FromContext(ctx),
		Storage:      storage.FromContext(ctx),
		RemoteConfig: remoteconfig.FromContext(ctx),
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/looplj/firelive/auth"
	"github.com/looplj/firelive/auth/fbauth"
	"github.com/looplj/firelive/firestore"
	"github.com/looplj/firelive/realtime"
	"github.com/looplj/firelive/sdk"
	"github.com/looplj/firelive/state"
)

// watchable is the part of a container the watch command needs.
type watchable[T any] interface {
	Watch() (<-chan state.Snapshot[T], func())
	Close()
}

func handleWatchCommand(in []string) {
	a := parseArgs(in)
	kind, path := a.arg(0), a.arg(1)

	if kind == "" || (kind != "user" && path == "") {
		fmt.Println("Usage: firelive watch <doc|collection|group|node|nodes|user> <path> [--once] [-f json|yml]")
		os.Exit(1)
	}

	format := a.get("--format", "json")
	once := a.has("--once")

	run(func(ctx context.Context, h sdk.Handles) error {
		switch kind {
		case "doc":
			return follow[*map[string]any](ctx, firestore.NewDocState[map[string]any](ctx, h.Firestore, path,
				firestore.Options[map[string]any]{Once: once}), once, format)
		case "collection":
			var constraints []firestore.Constraint
			if n := a.int("--limit", 0); n > 0 {
				constraints = append(constraints, firestore.Limit(n))
			}

			return follow[[]map[string]any](ctx, firestore.NewCollectionState[map[string]any](ctx, h.Firestore, path, constraints,
				firestore.Options[map[string]any]{Once: once}), once, format)
		case "group":
			return follow[[]map[string]any](ctx, firestore.NewCollectionGroupState[map[string]any](ctx, h.Firestore, path,
				firestore.Options[map[string]any]{Once: once}), once, format)
		case "node":
			return follow[*any](ctx, realtime.NewNodeState[any](ctx, h.Database, path,
				realtime.Options[any]{Once: once}), once, format)
		case "nodes":
			return follow[[]map[string]any](ctx, realtime.NewNodeListState[map[string]any](ctx, h.Database, path,
				realtime.Options[map[string]any]{Once: once}), once, format)
		case "user":
			if token := a.get("--token", ""); token != "" {
				session, ok := h.Auth.(*fbauth.Session)
				if !ok {
					return errors.New("auth is not configured")
				}

				if _, err := session.SignIn(ctx, token); err != nil {
					return err
				}
			}

			return follow[*auth.User](ctx, auth.NewUserState(ctx, h.Auth, auth.Options{}), once, format)
		default:
			return fmt.Errorf("unknown watch target: %s", kind)
		}
	})
}

// follow prints every snapshot of c until ctx ends. With once it returns
// after the first snapshot that is no longer loading.
func follow[T any](ctx context.Context, c watchable[T], once bool, format string) error {
	defer c.Close()

	ch, cancel := c.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}

			out, err := render(viewOf(snap), format)
			if err != nil {
				return err
			}

			fmt.Println(out)

			if once && !snap.Loading {
				return nil
			}
		}
	}
}

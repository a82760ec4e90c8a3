package main

import (
	"context"
	"fmt"
	"os"

	"github.com/looplj/firelive/remoteconfig"
	"github.com/looplj/firelive/sdk"
)

func handleRemoteConfigCommand(in []string) {
	a := parseArgs(in)

	if a.arg(0) != "get" || a.arg(1) == "" {
		fmt.Println("Usage: firelive rc get <key> [-f json|yml]")
		os.Exit(1)
	}

	run(func(ctx context.Context, h sdk.Handles) error {
		s := remoteconfig.NewValueState(ctx, h.RemoteConfig, a.arg(1), remoteconfig.Options{})

		return follow[*remoteconfig.Value](ctx, s, true, a.get("--format", "json"))
	})
}

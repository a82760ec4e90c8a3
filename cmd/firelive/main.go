package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/looplj/firelive/conf"
	"github.com/looplj/firelive/firebase"
	"github.com/looplj/firelive/internal/build"
	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/metrics"
	"github.com/looplj/firelive/sdk"
	"github.com/looplj/firelive/state"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "watch":
		handleWatchCommand(os.Args[2:])
	case "storage":
		handleStorageCommand(os.Args[2:])
	case "rc", "remote-config":
		handleRemoteConfigCommand(os.Args[2:])
	case "config":
		handleConfigCommand(os.Args[2:])
	case "version", "--version", "-v":
		showVersion()
	case "build-info":
		showBuildInfo()
	case "help", "--help", "-h":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

type logger struct{}

func (l *logger) LogEvent(event fxevent.Event) {
	log.Debug(context.Background(), "fx event", log.Any("event", event))
}

// run starts the app, hands the handle set to fn and stops the app when fn
// returns or the process is interrupted.
func run(fn func(ctx context.Context, handles sdk.Handles) error) {
	var handles sdk.Handles

	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return &logger{}
		}),
		conf.Module,
		firebase.Module,
		fx.Provide(metrics.NewProvider),
		fx.Invoke(func(lc fx.Lifecycle, cfg conf.Config, provider *sdkmetric.MeterProvider) error {
			log.SetGlobalConfig(cfg.Log)

			if err := state.Configure(cfg.State); err != nil {
				return err
			}

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if provider != nil {
						return metrics.SetupMetrics(provider, cfg.Metrics.ServiceName)
					}

					return nil
				},
				OnStop: func(ctx context.Context) error {
					if provider != nil {
						return provider.Shutdown(ctx)
					}

					return nil
				},
			})

			return nil
		}),
		fx.Populate(&handles),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()

	if err := app.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fn(sdk.Set(ctx, handles), handles)
	stop()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()

	if serr := app.Stop(stopCtx); serr != nil {
		log.Error(context.Background(), "app stop error", log.Cause(serr))
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showBuildInfo() {
	fmt.Println(build.GetBuildInfo())
}

func showVersion() {
	fmt.Println(build.Version)
}

func showHelp() {
	fmt.Println("firelive - realtime backend containers")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  firelive watch doc <path>                Follow a Firestore document")
	fmt.Println("  firelive watch collection <path>         Follow a Firestore collection")
	fmt.Println("  firelive watch group <collection-id>     Follow a Firestore collection group")
	fmt.Println("  firelive watch node <path>               Follow a Realtime Database node")
	fmt.Println("  firelive watch nodes <path>              Follow the children of a node")
	fmt.Println("  firelive watch user                      Follow the signed in user")
	fmt.Println("  firelive storage list [path]             List one level of the bucket")
	fmt.Println("  firelive storage url <path>              Print a download URL")
	fmt.Println("  firelive storage upload <file>... <path> Upload files under a prefix")
	fmt.Println("  firelive rc get <key>                    Print a Remote Config value")
	fmt.Println("  firelive config preview                  Preview configuration")
	fmt.Println("  firelive config validate                 Validate configuration")
	fmt.Println("  firelive version                         Show version")
	fmt.Println("  firelive build-info                      Show build information")
	fmt.Println("  firelive help                            Show this help message")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -f, --format FORMAT   Output format (yml, json)")
	fmt.Println("  --once                Exit after the first settled value")
	fmt.Println("  --limit N             Limit collection and list results")
	fmt.Println("  --token T             ID token for watch user")
	fmt.Println("  --page-token T        Continue a storage listing")
	fmt.Println("  --parallel N          Concurrent uploads (default 4)")
}

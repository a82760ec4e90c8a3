package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/zhenzou/executors"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/sdk"
	"github.com/looplj/firelive/storage"
)

func handleStorageCommand(in []string) {
	a := parseArgs(in)
	format := a.get("--format", "json")

	switch {
	case a.arg(0) == "list":
		run(func(ctx context.Context, h sdk.Handles) error {
			opts := storage.Options{ListOptions: storage.ListOptions{
				MaxResults: a.int("--limit", 0),
				PageToken:  a.get("--page-token", ""),
			}}

			return follow[*storage.ListResult](ctx, storage.NewListState(ctx, h.Storage, a.arg(1), opts), true, format)
		})
	case a.arg(0) == "url" && a.arg(1) != "":
		run(func(ctx context.Context, h sdk.Handles) error {
			return follow[string](ctx, storage.NewDownloadURLState(ctx, h.Storage, a.arg(1), storage.Options{}), true, format)
		})
	case a.arg(0) == "upload" && len(a.positional) >= 3:
		files, prefix := a.positional[1:len(a.positional)-1], a.positional[len(a.positional)-1]

		run(func(ctx context.Context, h sdk.Handles) error {
			return uploadFiles(ctx, h.Storage, files, prefix, a.int("--parallel", 4))
		})
	default:
		fmt.Println("Usage: firelive storage <list [path]|url <path>|upload <file>... <path>> [--parallel N]")
		os.Exit(1)
	}
}

type errorHandler struct{}

func (h *errorHandler) CatchError(runnable executors.Runnable, err error) {
	log.Error(context.Background(), "upload task error", log.Cause(err))
}

type rejectionHandler struct{}

func (h *rejectionHandler) RejectExecution(runnable executors.Runnable, e executors.Executor) error {
	log.Error(context.Background(), "upload rejected by executor", log.String("runnable", reflect.ValueOf(runnable).String()))
	return errors.New("upload rejected")
}

// uploadFiles uploads every file under prefix, at most parallel at a time.
func uploadFiles(ctx context.Context, st storage.Storage, files []string, prefix string, parallel int) error {
	if st == nil {
		return errors.New("storage is not configured")
	}

	if parallel < 1 {
		parallel = 1
	}

	pool := executors.NewPoolScheduleExecutor(
		executors.WithMaxConcurrent(parallel),
		executors.WithMaxBlockingTasks(len(files)),
		executors.WithErrorHandler(&errorHandler{}),
		executors.WithRejectionHandler(&rejectionHandler{}),
		executors.WithLogger(log.GetGlobalLogger().AsSlog()),
	)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, file := range files {
		wg.Add(1)

		err := pool.ExecuteFunc(func(context.Context) {
			defer wg.Done()

			if err := uploadFile(ctx, st, file, prefix); err != nil {
				fail(fmt.Errorf("%s: %w", file, err))
			}
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("%s: %w", file, err))
		}
	}

	wg.Wait()

	if err := pool.Shutdown(context.Background()); err != nil {
		log.Warn(ctx, "executor shutdown error", log.Cause(err))
	}

	return errors.Join(errs...)
}

func uploadFile(ctx context.Context, st storage.Storage, file, prefix string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	ref := storage.NewRef(prefix).Child(filepath.Base(file))
	md := &storage.Metadata{ContentType: mime.TypeByExtension(filepath.Ext(file))}

	task := storage.NewUploadTaskState(ctx, st, ref.Path, f, info.Size(), md, storage.Options{})
	defer task.Close()

	ch, cancel := task.Watch()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			task.Cancel()
			<-task.Done()

			return ctx.Err()
		case snap := <-ch:
			if snap.Defined {
				fmt.Printf("%s %s %3.0f%%\n", ref, snap.Value.State, snap.Value.Fraction()*100)
			}

			if snap.Err != nil {
				return snap.Err
			}

			if !snap.Loading {
				return nil
			}
		}
	}
}

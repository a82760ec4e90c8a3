package storage

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/looplj/firelive/internal/log"
	"github.com/looplj/firelive/internal/pkg/xcontext"
	"github.com/looplj/firelive/state"
)

type TaskState string

const (
	TaskRunning  TaskState = "running"
	TaskSuccess  TaskState = "success"
	TaskCanceled TaskState = "canceled"
	TaskError    TaskState = "error"
)

// Progress is an upload snapshot. TotalBytes is negative when the size is
// unknown.
type Progress struct {
	BytesTransferred int64     `json:"bytes_transferred" yaml:"bytes_transferred"`
	TotalBytes       int64     `json:"total_bytes" yaml:"total_bytes"`
	State            TaskState `json:"state" yaml:"state"`
}

// Done reports whether the upload reached a final state.
func (p Progress) Done() bool {
	return p.State != "" && p.State != TaskRunning
}

// Fraction is the completed share in [0, 1], or 0 when the size is unknown.
func (p Progress) Fraction() float64 {
	if p.TotalBytes <= 0 {
		if p.State == TaskSuccess {
			return 1
		}

		return 0
	}

	return float64(p.BytesTransferred) / float64(p.TotalBytes)
}

// UploadTaskState uploads one object and publishes its progress. The upload
// is detached from the container: Close stops observation, Cancel stops the
// upload.
type UploadTaskState struct {
	*state.State[Progress]

	ref  Ref
	done chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewUploadTaskState(ctx context.Context, st Storage, path string, r io.Reader, size int64, md *Metadata, opts Options) *UploadTaskState {
	u := &UploadTaskState{ref: NewRef(path), done: make(chan struct{})}
	st = resolve(ctx, st)

	so := stateOptions[Progress](opts)
	so.Settled = Progress.Done

	if st == nil {
		close(u.done)
		u.State = state.Disconnected("UploadTaskState", sdkName, so)

		return u
	}

	src := state.SourceFunc[Progress](func(ctx context.Context, onNext func(Progress), onError func(error)) state.Unsubscribe {
		upCtx, cancel := xcontext.Detach(ctx)

		u.mu.Lock()
		u.cancel = cancel
		u.mu.Unlock()

		go u.run(upCtx, cancel, st, r, size, md, onNext, onError)

		return func() {}
	})

	u.State = state.Connect(log.WithFields(ctx, log.String("path", u.ref.String())), "UploadTaskState", src, so)

	return u
}

func (u *UploadTaskState) run(ctx context.Context, cancel context.CancelFunc, st Storage, r io.Reader, size int64, md *Metadata, onNext func(Progress), onError func(error)) {
	defer close(u.done)
	defer cancel()

	var written atomic.Int64

	onNext(Progress{TotalBytes: size, State: TaskRunning})

	err := st.Upload(ctx, u.ref, r, md, func(n int64) {
		written.Store(n)
		onNext(Progress{BytesTransferred: n, TotalBytes: size, State: TaskRunning})
	})

	n := written.Load()
	final := Progress{BytesTransferred: n, TotalBytes: size}

	switch {
	case err == nil:
		final.State = TaskSuccess
		if size < 0 {
			final.TotalBytes = n
		}

		onNext(final)
		log.Debug(ctx, "upload finished", log.Int64("bytes", n))
	case ctx.Err() != nil:
		final.State = TaskCanceled
		onNext(final)
		onError(state.WrapError(state.CodeCancelled, err))
	default:
		final.State = TaskError
		onNext(final)
		onError(err)
	}
}

func (u *UploadTaskState) Ref() Ref { return u.ref }

// Cancel aborts a running upload. It is a no-op once the upload finished.
func (u *UploadTaskState) Cancel() {
	u.mu.Lock()
	cancel := u.cancel
	u.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done is closed when the upload reached a final state. It is closed from
// the start for a disconnected container.
func (u *UploadTaskState) Done() <-chan struct{} { return u.done }

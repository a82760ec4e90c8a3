package remoteconfig

import (
	"context"
	"sync"
)

type fakeRC struct {
	mu          sync.Mutex
	unsupported bool
	supportErr  error
	fetchErr    error
	values      map[string]string
	defaults    map[string]string
	active      bool
	fetches     int
}

func (f *fakeRC) Supported(context.Context) (bool, error) {
	return !f.unsupported, f.supportErr
}

func (f *fakeRC) FetchAndActivate(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.fetches++
	if f.fetchErr != nil {
		return false, f.fetchErr
	}

	changed := !f.active
	f.active = true

	return changed, nil
}

func (f *fakeRC) Value(_ context.Context, key string) (Value, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if raw, ok := f.values[key]; ok && f.active {
		return Value{Raw: raw, Source: SourceRemote}, nil
	}

	if raw, ok := f.defaults[key]; ok {
		return Value{Raw: raw, Source: SourceDefault}, nil
	}

	return Value{Source: SourceStatic}, nil
}

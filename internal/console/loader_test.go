package console

import (
	"context"
	"errors"
	"testing"
)

func TestLoader(t *testing.T) {
	l := NewLoader[int]()

	if _, state, _ := l.Get(); state != StateIdle {
		t.Fatalf("initial state = %v, want idle", state)
	}

	v, err := l.Load(context.Background(), func(context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("Load() = %d, %v", v, err)
	}
	if got, state, _ := l.Get(); state != StateLoaded || got != 42 {
		t.Errorf("Get() = %d, %v", got, state)
	}
}

func TestLoaderFailure(t *testing.T) {
	l := NewLoader[int]()
	boom := errors.New("boom")

	if _, err := l.Load(context.Background(), func(context.Context) (int, error) {
		return 0, boom
	}); err != boom {
		t.Fatalf("Load() error = %v", err)
	}
	if _, state, err := l.Get(); state != StateFailed || err != boom {
		t.Errorf("Get() = %v, %v", state, err)
	}

	// A successful reload clears the failure.
	l.Load(context.Background(), func(context.Context) (int, error) { return 7, nil })
	if got, state, err := l.Get(); state != StateLoaded || got != 7 || err != nil {
		t.Errorf("Get() after reload = %d, %v, %v", got, state, err)
	}
}

func TestLoaderStaleResultDiscarded(t *testing.T) {
	l := NewLoader[string]()

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		l.Load(context.Background(), func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	l.Load(context.Background(), func(context.Context) (string, error) {
		return "fresh", nil
	})
	close(release)
	<-done

	if got, state, _ := l.Get(); got != "fresh" || state != StateLoaded {
		t.Errorf("Get() = %q, %v, stale load overwrote the newer value", got, state)
	}
}

func TestLoaderReset(t *testing.T) {
	l := NewLoader[int]()
	l.Load(context.Background(), func(context.Context) (int, error) { return 9, nil })

	l.Reset()
	if got, state, err := l.Get(); state != StateIdle || got != 0 || err != nil {
		t.Errorf("Get() after Reset = %d, %v, %v", got, state, err)
	}
}

func TestLoadStateString(t *testing.T) {
	for _, tt := range []struct {
		state LoadState
		want  string
	}{
		{StateIdle, "idle"},
		{StateLoading, "loading"},
		{StateLoaded, "loaded"},
		{StateFailed, "failed"},
	} {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

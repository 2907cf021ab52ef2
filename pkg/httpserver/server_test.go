package httpserver_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crmb/pkg/httpserver"
)

func localConfig(shutdown time.Duration) httpserver.Config {
	return httpserver.Config{
		Addr:            "127.0.0.1:0",
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
		ShutdownTimeout: shutdown,
	}
}

func startServer(t *testing.T, ctx context.Context, srv *httpserver.Server, h http.Handler) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()

	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, 5*time.Millisecond)
	return done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(localConfig(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := startServer(t, ctx, srv, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	resp, err := http.Get("http://" + srv.Addr())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	waitDone(t, done)
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestManualShutdown(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(localConfig(100*time.Millisecond))

	done := startServer(t, context.Background(), srv, nil)

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestStartError(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(httpserver.Config{Addr: ":invalid"})
	err := srv.Run(context.Background(), http.NewServeMux())
	require.Error(t, err)
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(localConfig(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := startServer(t, ctx, srv, http.NewServeMux())

	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)

	cancel()
	waitDone(t, done)
}

func TestHooks(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string, err error) httpserver.Hook {
		return func(context.Context, *slog.Logger) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}

	srv := httpserver.New(localConfig(0),
		httpserver.WithStartHook(record("start", nil)),
		httpserver.WithStopHook(record("stop cache", nil)),
		httpserver.WithStopHook(record("stop limiter", errors.New("ignored"))),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := startServer(t, ctx, srv, http.NewServeMux())
	cancel()
	waitDone(t, done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"start", "stop limiter", "stop cache"}, order)
}

func TestLoggerPassedToHooks(t *testing.T) {
	t.Parallel()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotLogger atomic.Pointer[slog.Logger]

	srv := httpserver.New(localConfig(50*time.Millisecond),
		httpserver.WithLogger(l),
		httpserver.WithStartHook(nil),
		httpserver.WithStartHook(func(_ context.Context, lg *slog.Logger) error {
			gotLogger.Store(lg)
			return nil
		}),
	)
	done := startServer(t, context.Background(), srv, nil)
	assert.Eventually(t, func() bool { return gotLogger.Load() == l }, time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/missing")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "nil handler serves 404")

	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	srv := httpserver.New(httpserver.Config{})
	assert.Empty(t, srv.Addr())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestHealthCheckHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		checks   []httpserver.Check
		wantCode int
		wantBody string
	}{
		{"liveness", nil, http.StatusOK, "ALIVE"},
		{"ready", []httpserver.Check{func(context.Context) error { return nil }}, http.StatusOK, "READY"},
		{
			"not ready",
			[]httpserver.Check{
				func(context.Context) error { return nil },
				func(context.Context) error { return errors.New("redis down") },
			},
			http.StatusServiceUnavailable,
			"NOT_READY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			httpserver.HealthCheckHandler(nil, tt.checks...)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

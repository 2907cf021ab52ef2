package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crmb/pkg/logger"
)

type ctxKey struct{}

func keyExtractor(ctx context.Context) (slog.Attr, bool) {
	if v, ok := ctx.Value(ctxKey{}).(string); ok {
		return slog.String("key", v), true
	}
	return slog.Attr{}, false
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestNewJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		opts  []logger.Option
		ctx   context.Context
		want  map[string]any
		empty []string
	}{
		{
			name: "defaults",
			ctx:  context.Background(),
			want: map[string]any{"level": "INFO", "msg": "bucket created"},
		},
		{
			name: "unknown format keeps json",
			opts: []logger.Option{logger.WithFormat("xml")},
			ctx:  context.Background(),
			want: map[string]any{"msg": "bucket created"},
		},
		{
			name: "static attrs",
			opts: []logger.Option{logger.WithAttr(slog.String("component", "ratelimiter"))},
			ctx:  context.Background(),
			want: map[string]any{"component": "ratelimiter"},
		},
		{
			name: "extractor hit",
			opts: []logger.Option{logger.WithContextExtractors(nil, keyExtractor)},
			ctx:  context.WithValue(context.Background(), ctxKey{}, "tmdb"),
			want: map[string]any{"key": "tmdb"},
		},
		{
			name:  "extractor miss",
			opts:  []logger.Option{logger.WithContextExtractors(keyExtractor)},
			ctx:   context.Background(),
			empty: []string{"key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := &bytes.Buffer{}
			log := logger.New(append(tt.opts, logger.WithOutput(buf))...)
			log.InfoContext(tt.ctx, "bucket created")

			entry := decodeLine(t, buf)
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			for _, k := range tt.empty {
				assert.NotContains(t, entry, k)
			}
		})
	}
}

func TestExtractorsSurviveWith(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(keyExtractor)).
		With(slog.String("tier", "memory")).
		WithGroup("cache")
	log.InfoContext(context.WithValue(context.Background(), ctxKey{}, "tmdb:movie:550"), "hit")

	entry := decodeLine(t, buf)
	assert.Equal(t, "memory", entry["tier"])
	group, ok := entry["cache"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tmdb:movie:550", group["key"])
}

func TestTextFormat(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
	log.Info("hello")
	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), "msg=hello")
}

func TestWithEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("development", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment("", "gateway"), logger.WithOutput(buf))
		log.Debug("msg")

		out := buf.String()
		assert.Contains(t, out, "level=DEBUG")
		assert.Contains(t, out, "service=gateway")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment("Production", "gateway"), logger.WithOutput(buf))
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("msg")
		entry := decodeLine(t, buf)
		assert.Equal(t, "gateway", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})
}

func TestLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     logger.Option
		infoOut bool
	}{
		{"name warn", logger.WithLevelName("warn"), false},
		{"name upper debug", logger.WithLevelName(" DEBUG "), true},
		{"unknown name", logger.WithLevelName("nonsense"), true},
		{"explicit error", logger.WithLevel(slog.LevelError), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			logger.New(logger.WithOutput(buf), tt.opt).Info("probe")
			assert.Equal(t, tt.infoOut, buf.Len() > 0)
		})
	}
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decodeLine(t, buf)["msg"])
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	log := logger.Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.With("k", "v").WithGroup("g").Error("dropped")
}

package requestid_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crmb/pkg/requestid"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, header string) (ctxID, respID string) {
	t.Helper()

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = requestid.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil)
	if header != "" {
		req.Header.Set(requestid.Header, header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	return ctxID, rec.Header().Get(requestid.Header)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("generates a UUIDv7 when absent", func(t *testing.T) {
		t.Parallel()

		ctxID, respID := serve(t, requestid.Middleware(), "")
		require.NotEmpty(t, ctxID)
		assert.Equal(t, ctxID, respID)

		parsed, err := uuid.Parse(ctxID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(7), parsed.Version())
	})

	t.Run("reuses a valid client ID", func(t *testing.T) {
		t.Parallel()

		ctxID, respID := serve(t, requestid.Middleware(), "trace_42-abc")
		assert.Equal(t, "trace_42-abc", ctxID)
		assert.Equal(t, "trace_42-abc", respID)
	})

	t.Run("replaces invalid client IDs", func(t *testing.T) {
		t.Parallel()

		for _, bad := range []string{
			"test@request#id",
			"test request id",
			"route:/api/tmdb",
			"<script>alert(1)</script>",
			strings.Repeat("a", 129),
		} {
			mw := requestid.Middleware(requestid.WithGenerator(func() string { return "generated" }))
			ctxID, respID := serve(t, mw, bad)
			assert.Equal(t, "generated", ctxID, bad)
			assert.Equal(t, "generated", respID, bad)
		}
	})

	t.Run("custom header", func(t *testing.T) {
		t.Parallel()

		h := requestid.Middleware(requestid.WithHeader("X-Correlation-ID"))(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
		)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Correlation-ID", "corr-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "corr-1", rec.Header().Get("X-Correlation-ID"))
		assert.Empty(t, rec.Header().Get(requestid.Header))
	})
}

func TestValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"abc123", true},
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"a/b", false},
		{strings.Repeat("x", 128), true},
		{strings.Repeat("x", 129), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requestid.Valid(tt.id), tt.id)
	}
}

func TestLogAttr(t *testing.T) {
	t.Parallel()

	_, ok := requestid.LogAttr(context.Background())
	assert.False(t, ok)

	attr, ok := requestid.LogAttr(requestid.WithContext(context.Background(), "req-1"))
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-1", attr.Value.String())
}

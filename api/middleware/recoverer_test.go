package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func TestRequestIDKeepsValidCallerID(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "checkout-42")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	assert.Equal(t, "checkout-42", seen)
	assert.Equal(t, "checkout-42", resp.Header().Get("X-Request-Id"))
}

func TestRequestIDReplacesUnusableCallerID(t *testing.T) {
	for name, value := range map[string]string{
		"missing":  "",
		"too long": strings.Repeat("a", maxRequestIDLen+1),
		"spaces":   "two words",
		"control":  "id\x01",
	} {
		var seen string
		handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = logger.RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", value)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		assert.NotEqual(t, value, seen, name)
		assert.Len(t, seen, 36, name)
		assert.Equal(t, seen, resp.Header().Get("X-Request-Id"), name)
	}
}

func TestRecovererWritesInternalErrorWithRequestID(t *testing.T) {
	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	r := chi.NewRouter()
	r.Use(RequestID(logg), Recoverer(logg))
	r.Get("/api/v1/orders/{orderId}", func(http.ResponseWriter, *http.Request) {
		panic("nil order")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/1", nil)
	req.Header.Set("X-Request-Id", "req-7")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	assert.Equal(t, "req-7", body.Error.RequestID)
	assert.NotContains(t, resp.Body.String(), "nil order")

	assert.Contains(t, logs.String(), `"msg":"http.panic_recovered"`)
	assert.Contains(t, logs.String(), `"route":"/api/v1/orders/{orderId}"`)
	assert.Contains(t, logs.String(), `"request_id":"req-7"`)
}

func TestRecovererReraisesAbortHandler(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithError(t, http.ErrAbortHandler.Error(), func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type rejectBody struct {
	Reason string  `json:"reason" validate:"required"`
	Notes  *string `json:"notes"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"notes":"x"}`))
	var body rejectBody
	err := DecodeJSONBody(req, &body)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"reason": "is required"}, typed.Details())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":"x","extra":1}`))
	var body rejectBody
	assert.True(t, pkgerrors.Is(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsEmptyAndTrailingBodies(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":    ``,
		"trailing": `{"reason":"x"}{"reason":"y"}`,
	} {
		req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(payload))
		var body rejectBody
		typed := pkgerrors.As(DecodeJSONBody(req, &body))
		require.NotNil(t, typed, name)
		assert.Equal(t, pkgerrors.CodeValidation, typed.Code(), name)
		assert.Contains(t, typed.Details(), "body", name)
	}
}

func TestDecodeJSONBodyNamesMistypedField(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"reason":42}`))
	var body rejectBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	require.NotNil(t, typed)
	assert.Equal(t, map[string]string{"reason": "must be a string"}, typed.Details())
}

func TestDecodeJSONBodyCapsSize(t *testing.T) {
	huge := `{"reason":"` + strings.Repeat("x", int(MaxBodyBytes)) + `"}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(huge))
	var body rejectBody
	typed := pkgerrors.As(DecodeJSONBody(req, &body))
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"body": "must be at most 1048576 bytes"}, typed.Details())
}

func TestParsePagination(t *testing.T) {
	params, err := ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, 5, params.Limit)
	assert.Equal(t, "abc", params.Cursor)

	_, err = ParsePagination(httptest.NewRequest(http.MethodGet, "/?limit=5000", nil))
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestParseUUIDs(t *testing.T) {
	id, err := ParseOptionalUUIDQuery(httptest.NewRequest(http.MethodGet, "/", nil), "userId")
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = ParseOptionalUUIDQuery(httptest.NewRequest(http.MethodGet, "/?userId=nope", nil), "userId")
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", "1b4e28ba-2fa1-11d2-883f-0016d3cca427")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
	parsed, err := ParseUUIDParam(req, "orderId")
	require.NoError(t, err)
	assert.Equal(t, "1b4e28ba-2fa1-11d2-883f-0016d3cca427", parsed.String())
}

package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/resellr-backend/pkg/errors"
)

type samplePayload struct {
	Name   string `json:"name" validate:"required,max=5"`
	Method string `json:"method" validate:"omitempty,oneof=cash upi"`
	Nested struct {
		City string `json:"city" validate:"required"`
	} `json:"nested"`
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"toolong","method":"card","nested":{}}`))
	var dest samplePayload
	err := DecodeJSONBody(req, &dest)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be at most 5", details["name"])
	assert.Equal(t, "must be one of [cash upi]", details["method"])
	assert.Equal(t, "is required", details["nested.city"])
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndEmptyBody(t *testing.T) {
	var dest samplePayload
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`)), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dest)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeOptionalJSONBodyAcceptsEmptyBody(t *testing.T) {
	var dest struct {
		Reason string `json:"reason" validate:"max=10"`
	}
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dest))
	require.NoError(t, DecodeOptionalJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"ok"}`)), &dest))
	assert.Equal(t, "ok", dest.Reason)
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&bad=x&big=500", nil)

	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	v, err = ParseQueryInt(req, "missing", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = ParseQueryInt(req, "bad", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	_, err = ParseQueryInt(req, "big", 20, 1, 100)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSessionTokenPrecedence(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?sessionToken=from-query", nil)
	req.Header.Set(SessionTokenHeader, "from-header")

	assert.Equal(t, "from-body", SessionToken(req, " from-body "))
	assert.Equal(t, "from-header", SessionToken(req, ""))

	req.Header.Del(SessionTokenHeader)
	assert.Equal(t, "from-query", SessionToken(req, ""))
	assert.Equal(t, "", SessionToken(httptest.NewRequest(http.MethodGet, "/", nil), ""))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 0))
	assert.Equal(t, "ab", SanitizeString("a\x00b", 0))
	assert.Equal(t, "line\nbreak", SanitizeString("line\nbreak", 0))
	// "é" is two bytes; a cut at three must not split it
	assert.Equal(t, "aé", SanitizeString("aéb", 3))
	assert.Equal(t, "a", SanitizeString("aéb", 2))
}

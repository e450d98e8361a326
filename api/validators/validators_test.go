package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	pkgerrors "github.com/scentlab/perfumery-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mixPayload struct {
	A    *float64 `json:"a" validate:"required,gte=0,lte=100"`
	B    *float64 `json:"b" validate:"required,gte=0,lte=100"`
	Name string   `json:"name" validate:"required,max=5"`
}

func (p mixPayload) CheckFields() map[string]string {
	if p.A != nil && p.B != nil && *p.A+*p.B != 100 {
		return map[string]string{"total": "must equal 100"}
	}
	return nil
}

func decode(t *testing.T, body string) (*mixPayload, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest mixPayload
	err := DecodeJSONBody(req, &dest)
	return &dest, err
}

func detailsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "expected map details, got %T", typed.Details())
	return details
}

func TestDecodeJSONBodyReportsEveryViolation(t *testing.T) {
	_, err := decode(t, `{"a": 150, "b": 20, "name": "toolongname"}`)
	details := detailsOf(t, err)
	assert.Contains(t, details, "a")
	assert.Contains(t, details, "name")
	assert.Equal(t, "must equal 100", details["total"])
}

func TestDecodeJSONBodyMissingFields(t *testing.T) {
	_, err := decode(t, `{"name": "ok"}`)
	details := detailsOf(t, err)
	assert.Equal(t, "is required", details["a"])
	assert.Equal(t, "is required", details["b"])
	assert.NotContains(t, details, "total")
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	dest, err := decode(t, `{"a": 40, "b": 60, "name": "ok"}`)
	require.NoError(t, err)
	assert.Equal(t, 40.0, *dest.A)
}

func TestDecodeJSONBodyRejectsUnknownAndEmpty(t *testing.T) {
	_, err := decode(t, `{"a": 40, "b": 60, "name": "ok", "extra": true}`)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = decode(t, ``)
	require.Error(t, err)
	assert.Equal(t, "request body is required", pkgerrors.As(err).Message())
}

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{raw: "12", want: 12},
		{raw: "0", wantErr: true},
		{raw: "abc", wantErr: true},
		{raw: "", wantErr: true},
	}
	for _, tc := range tests {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", tc.raw)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
		got, err := ParseIDParam(r, "id")
		if tc.wantErr {
			assert.Error(t, err, "raw %q", tc.raw)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = BearerToken("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, raw := range []string{"", "Bearer ", "Basic abc", "abc"} {
		_, err := BearerToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, "raw %q", raw)
	}
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "chanel", SanitizeString("  chanel  ", 0))
	assert.Equal(t, "éa", SanitizeString("éab", 2))

	blank := "   "
	assert.Nil(t, OptionalString(&blank, 10))
	assert.Nil(t, OptionalString(nil, 10))
	value := " citrus "
	assert.Equal(t, "citrus", *OptionalString(&value, 10))
}

func TestDecodeJSONBodyRejectsConcatenatedDocuments(t *testing.T) {
	_, err := decode(t, `{"a": 40, "b": 60, "name": "ok"}{"a": 1}`)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRejectsOversizedBody(t *testing.T) {
	body := `{"a": 40, "b": 60, "name": "` + strings.Repeat("x", MaxBodyBytes) + `"}`
	_, err := decode(t, body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParsePage(t *testing.T) {
	cases := map[string]struct {
		query   string
		page    int
		limit   int
		wantErr string
	}{
		"defaults":          {query: "", page: 1, limit: 10},
		"explicit":          {query: "page=3&limit=25", page: 3, limit: 25},
		"limit above max":   {query: "limit=101", wantErr: "limit"},
		"page zero":         {query: "page=0", wantErr: "page"},
		"non numeric limit": {query: "limit=ten", wantErr: "limit"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/perfumes?"+tc.query, nil)
			got, err := ParsePage(r)
			if tc.wantErr != "" {
				details := detailsOf(t, err)
				assert.Contains(t, details, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.page, got.Page)
			assert.Equal(t, tc.limit, got.Limit)
		})
	}
}

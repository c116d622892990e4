package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		query string
		want  Page
		err   bool
	}{
		{"", Page{1, 20}, false},
		{"page=3&limit=5", Page{3, 5}, false},
		{"page=0&limit=0", Page{1, 20}, false},
		{"limit=1000", Page{1, 20}, false},
		{"page=x", Page{}, true},
		{"page=9223372036854775807", Page{}, true},
		{"page=99999999999999999999", Page{}, true},
		{"limit=y", Page{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			p, err := ParsePage(r)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestLastPageOffset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/?page=%d&limit=100", maxPage), nil)
	p, err := ParsePage(r)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, p.Offset(), 0)

	r = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/?page=%d", maxPage+1), nil)
	_, err = ParsePage(r)
	assert.ErrorIs(t, err, ErrPageRange)
}

func TestPageMath(t *testing.T) {
	p := Page{Page: 3, Limit: 20}
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 0, p.Pages(0))
	assert.Equal(t, 1, p.Pages(20))
	assert.Equal(t, 3, p.Pages(41))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(r))

	r.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", ClientIP(r))

	r.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", ClientIP(r))
}

func TestResponseBuffer(t *testing.T) {
	buf := NewResponseBuffer()
	buf.Header().Set("X-Test", "1")
	buf.WriteHeader(http.StatusTeapot)
	_, err := buf.Write([]byte("short and stout"))
	require.NoError(t, err)

	assert.Equal(t, http.StatusTeapot, buf.Status())
	assert.Equal(t, "short and stout", string(buf.Body()))

	rec := httptest.NewRecorder()
	require.NoError(t, buf.Flush(rec))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Test"))
	assert.Equal(t, "short and stout", rec.Body.String())
}

func TestLogValidation(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()

	LogValidation(rec, r, "test.validate", map[string]string{"email": "Email is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"Validation failed","errors":{"email":"Email is required"}}`, rec.Body.String())
}

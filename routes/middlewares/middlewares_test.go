package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func withClaims(claims map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if claims == nil {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), oauth.ClaimsContext, claims))
}

func TestAdminRole(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]string
		want   int
	}{
		{"admin", map[string]string{"roles": "admin"}, http.StatusOK},
		{"among others", map[string]string{"roles": "viewer, admin"}, http.StatusOK},
		{"other role", map[string]string{"roles": "viewer"}, http.StatusForbidden},
		{"no roles", map[string]string{}, http.StatusForbidden},
		{"no claims", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			admin(ok).ServeHTTP(w, withClaims(tt.claims))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAdminWithoutToken(t *testing.T) {
	w := httptest.NewRecorder()
	Admin("secret")(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCookieAuth(t *testing.T) {
	bs := oauth.NewBearerServer("secret", 0, nil, nil)
	unauthorized := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	t.Run("passes non GET requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		CookieAuth(bs)(unauthorized).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("uses the access token cookie", func(t *testing.T) {
		var auth string
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("authorization")
			w.Write([]byte("page"))
		})
		r := httptest.NewRequest(http.MethodGet, "/admin/", nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "tok"})

		w := httptest.NewRecorder()
		CookieAuth(bs)(h).ServeHTTP(w, r)

		assert.Equal(t, "Bearer tok", auth)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "page", w.Body.String())
	})

	t.Run("redirects to login without cookies", func(t *testing.T) {
		w := httptest.NewRecorder()
		CookieAuth(bs)(unauthorized).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/?tab=1", nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/login?goto=%2Fadmin%2F%3Ftab%3D1", w.Header().Get("location"))
		assert.Empty(t, w.Result().Cookies())
	})

	t.Run("clears a rejected refresh token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/admin/", nil)
		r.AddCookie(&http.Cookie{Name: "access_token", Value: "expired"})
		r.AddCookie(&http.Cookie{Name: "refresh_token", Value: "not-a-token"})

		w := httptest.NewRecorder()
		CookieAuth(bs)(unauthorized).ServeHTTP(w, r)

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		cookies := w.Result().Cookies()
		if assert.Len(t, cookies, 1) {
			assert.Equal(t, "refresh_token", cookies[0].Name)
			assert.Equal(t, -1, cookies[0].MaxAge)
		}
	})
}

package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-form/httpx"
)

const refreshCookieMaxAge = 60 * 60 * 24 * 365

// Admin middleware to check for the 'admin' role in an OAuth token signed
// with secret.
func Admin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), admin).Handler(next)
	}
}

func admin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)

		isAdmin := false
		for _, role := range strings.Split(claims["roles"], ",") {
			if strings.TrimSpace(role) == "admin" {
				isAdmin = true
				break
			}
		}

		if !isAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CookieAuth lets browser page loads authenticate through the access_token
// cookie. An expired access token is renewed with the refresh_token cookie;
// without one the browser is sent to the login page.
func CookieAuth(bearerServer *oauth.BearerServer) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				h.ServeHTTP(w, r)
				return
			}

			token, err := r.Cookie("access_token")
			if err != nil && !errors.Is(err, http.ErrNoCookie) {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err == nil {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
			}

			loginLocation := "/login?goto=" + url.QueryEscape(r.RequestURI)

			refreshToken, err := r.Cookie("refresh_token")
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				redirect(w, loginLocation, false)
				return
			}

			status, accessToken := refresh(bearerServer, w, refreshToken.Value)
			switch status {
			case http.StatusOK:
			case http.StatusUnauthorized:
				redirect(w, loginLocation, true)
				return
			default:
				http.Error(w, http.StatusText(status), status)
				return
			}

			r.Header.Set("authorization", "Bearer "+accessToken)
			h.ServeHTTP(w, r)
		})
	}
}

// refresh runs a refresh_token grant against the bearer server, storing the
// new tokens as cookies on success.
func refresh(bearerServer *oauth.BearerServer, w http.ResponseWriter, refreshToken string) (int, string) {
	body := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}.Encode()
	req, err := http.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return http.StatusInternalServerError, ""
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))

	resp := httpx.NewResponseBuffer()
	bearerServer.UserCredentials(resp, req)
	if resp.Status() != http.StatusOK && resp.Status() != 0 {
		return resp.Status(), ""
	}

	var tokens struct {
		AccessToken  string  `json:"access_token"`
		RefreshToken string  `json:"refresh_token"`
		ExpiresIn    float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &tokens); err != nil {
		return http.StatusInternalServerError, ""
	}

	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "access_token",
		Value:    tokens.AccessToken,
		MaxAge:   int(tokens.ExpiresIn),
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     "refresh_token",
		Value:    tokens.RefreshToken,
		MaxAge:   refreshCookieMaxAge,
		SameSite: http.SameSiteNoneMode,
	})
	return http.StatusOK, tokens.AccessToken
}

func redirect(w http.ResponseWriter, location string, clearRefresh bool) {
	w.Header().Set("location", location)
	if clearRefresh {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     "refresh_token",
			Value:    "",
			MaxAge:   -1,
			SameSite: http.SameSiteNoneMode,
		})
	}
	w.WriteHeader(http.StatusTemporaryRedirect)
}

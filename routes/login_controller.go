package routes

import (
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
)

var refreshAuthRE = regexp.MustCompile(`(?i)^refresh\s+(.+)$`)

// tokenRequest rewrites r into the urlencoded grant the bearer server expects.
func tokenRequest(r *http.Request, grant url.Values) {
	body := grant.Encode()
	r.Body = io.NopCloser(strings.NewReader(body))
	r.ContentLength = int64(len(body))
	r.Header.Set("content-type", "application/x-www-form-urlencoded")
	r.Header.Set("content-length", strconv.Itoa(len(body)))
}

// Login trades HTTP basic credentials for an access/refresh token pair.
func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "login.basic_auth")
			return
		}

		tokenRequest(r, url.Values{
			"grant_type": {"password"},
			"username":   {user},
			"password":   {pass},
		})
		app.UserCredentials(w, r)
	}
}

// Refresh reads "Authorization: Refresh <token>" and issues a new token pair.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := refreshAuthRE.FindStringSubmatch(r.Header.Get("authorization"))
		if match == nil {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		r.Header.Del("authorization")
		tokenRequest(r, url.Values{
			"grant_type":    {"refresh_token"},
			"refresh_token": {strings.TrimSpace(match[1])},
		})
		app.UserCredentials(w, r)
	}
}

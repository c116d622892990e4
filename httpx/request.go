package httpx

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// IDParam parses the named URL parameter as a row id.
func IDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// ClientIP is the remote address without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Page is the pagination window requested through the page and limit query
// parameters.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	// keeps Offset within int for any accepted limit
	maxPage = math.MaxInt/maxPageLimit + 1
)

var ErrPageRange = errors.New("page out of range")

func ParsePage(r *http.Request) (Page, error) {
	p := Page{Page: 1, Limit: defaultPageLimit}
	q := r.URL.Query()

	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, err
		}
		if n > maxPage {
			return p, ErrPageRange
		}
		p.Page = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return p, err
		}
		p.Limit = n
	}

	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p, nil
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages is the number of pages needed to hold total items.
func (p Page) Pages(total int) int {
	return (total + p.Limit - 1) / p.Limit
}

package app

import (
	"database/sql"

	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/metrics"
)

// App bundles what controllers need to serve a request.
type App struct {
	*sql.DB
	*oauth.BearerServer
	*metrics.Metrics
	config.Config
}

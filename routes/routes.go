package routes

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/database"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	middleware.DefaultLogger = middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  log.Logger,
		NoColor: true,
	})

	root := chi.NewRouter()
	root.Use(middleware.RealIP, middleware.Logger, middleware.Recoverer)
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	root.Mount("/api", apiRouter(app))
	root.Handle("/metrics", app.Metrics.Handler())

	root.
		With(middlewares.CookieAuth(app.BearerServer), middlewares.Admin(app.TokenSecret)).
		Mount("/admin", servePrivateFiles("/admin", app.PrivateDir))
	root.Mount("/", servePublicFiles(app.PublicDir))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Get("/health", Health)

	api.Get("/forms", PublicListForms(app))
	api.Get(`/forms/{id:^\d+$}`, PublicGetForm(app))
	api.Post(`/forms/{id:^\d+$}/validate`, ValidateAnswers(app))
	api.Post(`/forms/{id:^\d+$}/submissions`, SubmitForm(app))

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Admin(app.TokenSecret))

		r.Get("/me", Me)

		// CRUD form
		r.Post("/forms", CreateForm(app))
		r.Get("/forms", ListForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetForm(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Delete(`/forms/{id:^\d+$}`, DeleteForm(app))
		r.Put(`/forms/{id:^\d+$}/reorder`, ReorderFields(app))

		r.Get(`/forms/{id:^\d+$}/submissions`, ListSubmissions(app))
		r.Get(`/forms/{id:^\d+$}/submissions/export`, ExportSubmissions(app))
		r.Get(`/submissions/{id:^\d+$}`, GetSubmission(app))
		r.Delete(`/submissions/{id:^\d+$}`, DeleteSubmission(app))
	})

	api.Post("/login", Login(app))
	api.Post("/refresh", Refresh(app))

	return api
}

func servePublicFiles(dir string) http.Handler {
	return http.FileServer(http.Dir(dir))
}

func servePrivateFiles(path, dir string) http.Handler {
	return http.StripPrefix(path, http.FileServer(http.Dir(dir)))
}

// logDBError answers a failed database call: 404 for missing rows, 409 for
// stale versions, 500 otherwise.
func logDBError(w http.ResponseWriter, code string, id any, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		httpx.LogNotFound(w, code, id)
	case errors.Is(err, database.ErrConflict):
		httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, code+".conflict")
	default:
		httpx.LogInternalError(w, code, err)
	}
}

package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/database"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/metrics"
	"github.com/mbolis/quick-form/model"
	"github.com/mbolis/quick-form/validation"
)

type answersRequest struct {
	Answers model.AnswerMap `json:"answers"`
}

func Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":    "ok",
		"message":   "quick-form API is running",
		"timestamp": time.Now().UTC(),
	})
}

func PublicListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		forms, err := database.ListForms(r.Context(), app.DB, false)
		if err != nil {
			httpx.LogInternalError(w, "db.list_forms", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"count": len(forms),
			"forms": forms,
		})
	}
}

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "get_form", formId, err)
			return
		}

		render.JSON(w, r, form)
	}
}

func decodeAnswers(w http.ResponseWriter, r *http.Request) (model.AnswerMap, bool) {
	req := answersRequest{}
	err := render.DecodeJSON(r.Body, &req)
	if err != nil {
		httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
		return nil, false
	}
	if req.Answers == nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "request.answers", "answers are required")
		return nil, false
	}
	return req.Answers, true
}

// ValidateAnswers gives feedback while a form is being filled in. It never
// stores anything and answers 200 whatever the outcome.
func ValidateAnswers(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		answers, ok := decodeAnswers(w, r)
		if !ok {
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "validate.get_form", formId, err)
			return
		}

		result := validation.Validate(form.Fields, answers)
		app.ObserveValidation(metrics.Advisory, result.Valid)

		render.JSON(w, r, result)
	}
}

func SubmitForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		answers, ok := decodeAnswers(w, r)
		if !ok {
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "submit.get_form", formId, err)
			return
		}

		result, err := validation.Submit(form, answers)
		if errors.Is(err, validation.ErrFormInactive) {
			app.IncrementSubmission(metrics.Inactive)
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "submit.inactive",
				"This form is no longer accepting submissions")
			return
		}
		app.ObserveValidation(metrics.Authoritative, result.Valid)
		if !result.Valid {
			app.IncrementSubmission(metrics.Invalid)
			httpx.LogValidation(w, r, "submit.validate", result.Errors)
			return
		}

		submissionId, err := database.InsertSubmission(r.Context(), app.DB, model.Submission{
			FormID:      form.ID,
			FormVersion: form.Version,
			Answers:     result.Answers,
			IP:          httpx.ClientIP(r),
			UserAgent:   r.UserAgent(),
			Time:        time.Now(),
		})
		if err != nil {
			httpx.LogInternalError(w, "submit.insert", err)
			return
		}
		app.IncrementSubmission(metrics.Accepted)
		log.WithFields(log.Fields{
			"form_id":       form.ID,
			"form_version":  form.Version,
			"submission_id": submissionId,
		}).Debug("submission accepted")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": submissionId,
		})
	}
}

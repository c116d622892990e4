package routes

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/database"
	"github.com/mbolis/quick-form/export"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
)

func ListSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}
		page, err := httpx.ParsePage(r)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.page")
			return
		}

		if _, err := database.GetForm(r.Context(), app.DB, formId); err != nil {
			logDBError(w, "list_submissions.get_form", formId, err)
			return
		}

		total, err := database.CountSubmissions(r.Context(), app.DB, formId)
		if err != nil {
			httpx.LogInternalError(w, "db.count_submissions", err)
			return
		}
		submissions, err := database.ListSubmissions(r.Context(), app.DB, formId, page.Limit, page.Offset())
		if err != nil {
			httpx.LogInternalError(w, "db.list_submissions", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"submissions": submissions,
			"pagination": map[string]any{
				"total": total,
				"page":  page.Page,
				"limit": page.Limit,
				"pages": page.Pages(total),
			},
		})
	}
}

func ExportSubmissions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "export.get_form", formId, err)
			return
		}

		submissions, err := database.ListSubmissions(r.Context(), app.DB, formId, -1, 0)
		if err != nil {
			httpx.LogInternalError(w, "db.list_submissions", err)
			return
		}
		if len(submissions) == 0 {
			httpx.LogStatusMsg(w, http.StatusNotFound, log.DebugLevel, "export.empty", "No submissions found for this form")
			return
		}

		var buf bytes.Buffer
		if err := export.WriteCSV(&buf, form.Fields, submissions); err != nil {
			httpx.LogInternalError(w, "export.write_csv", err)
			return
		}
		log.WithFields(log.Fields{"form_id": formId, "rows": len(submissions)}).Info("submissions exported")

		w.Header().Set("content-type", "text/csv; charset=utf-8")
		w.Header().Set("content-disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename(form.Title)))
		w.Write(buf.Bytes())
	}
}

func GetSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		submission, err := database.GetSubmission(r.Context(), app.DB, submissionId)
		if err != nil {
			logDBError(w, "get_submission", submissionId, err)
			return
		}
		form, err := database.GetForm(r.Context(), app.DB, submission.FormID)
		if err != nil {
			logDBError(w, "get_submission.get_form", submission.FormID, err)
			return
		}

		render.JSON(w, r, map[string]any{
			"submission": submission,
			"form":       form,
		})
	}
}

func DeleteSubmission(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		submissionId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = database.DeleteSubmission(r.Context(), app.DB, submissionId)
		if err != nil {
			logDBError(w, "delete_submission", submissionId, err)
			return
		}
		log.WithFields(log.Fields{"submission_id": submissionId}).Info("submission deleted")

		w.WriteHeader(http.StatusNoContent)
	}
}

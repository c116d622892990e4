package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/oauth"
	"github.com/go-chi/render"
	"github.com/mbolis/quick-form/app"
	"github.com/mbolis/quick-form/database"
	"github.com/mbolis/quick-form/httpx"
	"github.com/mbolis/quick-form/log"
	"github.com/mbolis/quick-form/model"
)

type formRequest struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Fields      []model.Field `json:"fields"`
	IsActive    *bool         `json:"isActive"`
	Version     int           `json:"version"`
}

func Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	render.JSON(w, r, map[string]any{
		"username": claims["username"],
	})
}

// checkSchema answers 400 when the submitted fields are not a usable schema.
func checkSchema(w http.ResponseWriter, code string, fields []model.Field) bool {
	if err := model.CheckFields(fields); err != nil {
		httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, code, "%s", err)
		return false
	}
	return true
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := formRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form := model.Form{IsActive: true}
		if req.Title != nil {
			form.Title = strings.TrimSpace(*req.Title)
		}
		if form.Title == "" {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "create_form.title", "Form title is required")
			return
		}
		if req.Description != nil {
			form.Description = strings.TrimSpace(*req.Description)
		}
		if req.IsActive != nil {
			form.IsActive = *req.IsActive
		}
		form.Fields = req.Fields
		if !checkSchema(w, "create_form.fields", form.Fields) {
			return
		}

		formId, err := database.InsertForm(r.Context(), app.DB, form)
		if err != nil {
			httpx.LogInternalError(w, "create_form", err)
			return
		}
		app.IncrementFormCreated()
		log.WithFields(log.Fields{"form_id": formId, "fields": len(form.Fields)}).Info("form created")

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"id": formId,
		})
	}
}

func ListForms(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		includeInactive := r.URL.Query().Get("includeInactive") == "true"

		forms, err := database.ListForms(r.Context(), app.DB, includeInactive)
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

func GetForm(app app.App) http.HandlerFunc {
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

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := formRequest{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		upd := database.FormUpdate{
			Fields:   req.Fields,
			IsActive: req.IsActive,
			Version:  req.Version,
		}
		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "update_form.title", "Form title is required")
				return
			}
			upd.Title = &title
		}
		if req.Description != nil {
			description := strings.TrimSpace(*req.Description)
			upd.Description = &description
		}
		if upd.Fields != nil && !checkSchema(w, "update_form.fields", upd.Fields) {
			return
		}

		form, err := database.UpdateForm(r.Context(), app.DB, formId, upd)
		if err != nil {
			logDBError(w, "update_form", formId, err)
			return
		}
		log.WithFields(log.Fields{"form_id": formId, "version": form.Version}).Info("form updated")

		render.JSON(w, r, form)
	}
}

func DeleteForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		err = database.DeleteForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "delete_form", formId, err)
			return
		}
		log.WithFields(log.Fields{"form_id": formId}).Info("form deleted")

		w.WriteHeader(http.StatusNoContent)
	}
}

func ReorderFields(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		formId, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.get_url_param.id")
			return
		}

		req := struct {
			Order []string `json:"order"`
		}{}
		err = render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		form, err := database.GetForm(r.Context(), app.DB, formId)
		if err != nil {
			logDBError(w, "reorder_fields.get_form", formId, err)
			return
		}

		fields, err := model.Reorder(form.Fields, req.Order)
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusBadRequest, log.DebugLevel, "reorder_fields.order", "%s", err)
			return
		}

		err = database.SetFieldOrder(r.Context(), app.DB, formId, form.Version, fields)
		if err != nil {
			logDBError(w, "reorder_fields", formId, err)
			return
		}
		form.Fields = fields

		render.JSON(w, r, form)
	}
}

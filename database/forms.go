package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"
	"github.com/mbolis/quick-form/model"
	"github.com/pkg/errors"
)

// FormUpdate holds the attributes to change; nil members are left as they are.
// A non-zero Version must match the stored one.
type FormUpdate struct {
	Title       *string
	Description *string
	Fields      []model.Field
	IsActive    *bool
	Version     int
}

func InsertForm(ctx context.Context, db *sql.DB, form model.Form) (id int64, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO form (version, title, description, is_active, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		RETURNING id`,
		form.Title,
		form.Description,
		form.IsActive,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "db.insert_form")
	}

	err = insertFields(ctx, tx, id, form.Fields)
	if err != nil {
		return 0, err
	}

	return id, errors.Wrap(tx.Commit(), "db.insert_form.commit")
}

func insertFields(ctx context.Context, tx *sql.Tx, formID int64, fields []model.Field) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO form_field (form_id, position, type, name, label, required, options, validation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.Wrap(err, "db.insert_fields.prepare")
	}
	defer stmt.Close()

	for _, f := range fields {
		var options, rules []byte
		if len(f.Options) > 0 {
			options, err = json.Marshal(f.Options)
			if err != nil {
				return errors.Wrap(err, "db.insert_fields.encode_options")
			}
		}
		if f.Validation != nil {
			rules, err = json.Marshal(f.Validation)
			if err != nil {
				return errors.Wrap(err, "db.insert_fields.encode_validation")
			}
		}

		_, err = stmt.ExecContext(ctx,
			formID, f.Order, f.Type, f.Name, f.Label, f.Required, string(options), string(rules))
		if err != nil {
			return errors.Wrap(err, "db.insert_fields.insert")
		}
	}
	return nil
}

// ListForms returns form metadata, newest first, without fields.
func ListForms(ctx context.Context, db *sql.DB, includeInactive bool) ([]model.Form, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, version, title, description, is_active, created_at, updated_at
		FROM form
		WHERE is_active OR ?
		ORDER BY created_at DESC, id DESC`,
		includeInactive,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_forms")
	}
	defer rows.Close()

	forms := []model.Form{}
	for rows.Next() {
		f := model.Form{}
		err = rows.Scan(&f.ID, &f.Version, &f.Title, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "db.list_forms.scan")
		}
		forms = append(forms, f)
	}
	return forms, errors.Wrap(rows.Err(), "db.list_forms.rows")
}

func GetForm(ctx context.Context, db *sql.DB, id int64) (model.Form, error) {
	return getForm(ctx, db, id)
}

func getForm(ctx context.Context, q querier, id int64) (form model.Form, err error) {
	err = q.QueryRowContext(ctx, `
		SELECT id, version, title, description, is_active, created_at, updated_at
		FROM form
		WHERE id = ?`,
		id,
	).Scan(&form.ID, &form.Version, &form.Title, &form.Description, &form.IsActive, &form.CreatedAt, &form.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return form, ErrNotFound
	}
	if err != nil {
		return form, errors.Wrap(err, "db.get_form")
	}

	rows, err := q.QueryContext(ctx, `
		SELECT position, type, name, label, required, options, validation
		FROM form_field
		WHERE form_id = ?
		ORDER BY position, id`,
		id,
	)
	if err != nil {
		return form, errors.Wrap(err, "db.get_form.fields")
	}
	defer rows.Close()

	form.Fields = []model.Field{}
	for rows.Next() {
		f := model.Field{}
		var options, rules string
		err = rows.Scan(&f.Order, &f.Type, &f.Name, &f.Label, &f.Required, &options, &rules)
		if err != nil {
			return form, errors.Wrap(err, "db.get_form.fields.scan")
		}

		if options != "" {
			err = json.Unmarshal([]byte(options), &f.Options)
			if err != nil {
				return form, errors.Wrap(err, "db.get_form.fields.parse_options")
			}
		}
		if rules != "" {
			f.Validation = &model.Rules{}
			err = json.Unmarshal([]byte(rules), f.Validation)
			if err != nil {
				return form, errors.Wrap(err, "db.get_form.fields.parse_validation")
			}
		}

		form.Fields = append(form.Fields, f)
	}
	return form, errors.Wrap(rows.Err(), "db.get_form.fields.rows")
}

// UpdateForm applies upd and returns the stored result. Replacing the fields
// bumps the form version.
func UpdateForm(ctx context.Context, db *sql.DB, id int64, upd FormUpdate) (model.Form, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return model.Form{}, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	form, err := getForm(ctx, tx, id)
	if err != nil {
		return form, err
	}
	if upd.Version != 0 && upd.Version != form.Version {
		return form, ErrConflict
	}

	if upd.Title != nil {
		form.Title = *upd.Title
	}
	if upd.Description != nil {
		form.Description = *upd.Description
	}
	if upd.IsActive != nil {
		form.IsActive = *upd.IsActive
	}

	version := form.Version
	if upd.Fields != nil {
		version++

		_, err = tx.ExecContext(ctx, `
			DELETE FROM form_field
			WHERE form_id = ?`,
			id,
		)
		if err != nil {
			return form, errors.Wrap(err, "db.update_form.delete_fields")
		}

		err = insertFields(ctx, tx, id, upd.Fields)
		if err != nil {
			return form, err
		}
	}

	// optimistic lock
	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET
			title = ?,
			description = ?,
			is_active = ?,
			version = ?,
			updated_at = ?
		WHERE id = ?
			AND version = ?`,
		form.Title,
		form.Description,
		form.IsActive,
		version,
		time.Now().UTC(),
		id,
		form.Version,
	)
	if err != nil {
		return form, errors.Wrap(err, "db.update_form")
	}
	if err = affected(res, "db.update_form.verify"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return form, ErrConflict
		}
		return form, err
	}

	form, err = getForm(ctx, tx, id)
	if err != nil {
		return form, err
	}
	return form, errors.Wrap(tx.Commit(), "db.update_form.commit")
}

// SetFieldOrder stores the positions of fields, which must be the current
// top-level fields of the form at the given version. The version is kept.
func SetFieldOrder(ctx context.Context, db *sql.DB, id int64, version int, fields []model.Field) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE form
		SET updated_at = ?
		WHERE id = ?
			AND version = ?`,
		time.Now().UTC(),
		id,
		version,
	)
	if err != nil {
		return errors.Wrap(err, "db.reorder_fields.touch")
	}
	if err = affected(res, "db.reorder_fields.verify"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrConflict
		}
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE form_field
		SET position = ?
		WHERE form_id = ?
			AND name = ?`)
	if err != nil {
		return errors.Wrap(err, "db.reorder_fields.prepare")
	}
	defer stmt.Close()

	for _, f := range fields {
		_, err = stmt.ExecContext(ctx, f.Order, id, f.Name)
		if err != nil {
			return errors.Wrap(err, "db.reorder_fields.update")
		}
	}

	return errors.Wrap(tx.Commit(), "db.reorder_fields.commit")
}

func DeleteForm(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM form WHERE id = ?`,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_form")
	}
	return affected(res, "db.delete_form.verify")
}

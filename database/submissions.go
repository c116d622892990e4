package database

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/mbolis/quick-form/model"
	"github.com/pkg/errors"
)

func InsertSubmission(ctx context.Context, db *sql.DB, s model.Submission) (id int64, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "db.begin_tx")
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO submission (form_id, form_version, time, ip, user_agent)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id`,
		s.FormID,
		s.FormVersion,
		s.Time.UTC(),
		s.IP,
		s.UserAgent,
	).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "db.insert_submission")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO submission_answer (submission_id, name, value)
		VALUES (?, ?, ?)`)
	if err != nil {
		return 0, errors.Wrap(err, "db.insert_submission.answers.prepare")
	}
	defer stmt.Close()

	for name, value := range s.Answers {
		valueJson, err := json.Marshal(value)
		if err != nil {
			return 0, errors.Wrap(err, "db.insert_submission.answers.encode_value")
		}
		_, err = stmt.ExecContext(ctx, id, name, string(valueJson))
		if err != nil {
			return 0, errors.Wrap(err, "db.insert_submission.answers.insert")
		}
	}

	return id, errors.Wrap(tx.Commit(), "db.insert_submission.commit")
}

func CountSubmissions(ctx context.Context, db *sql.DB, formID int64) (n int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM submission WHERE form_id = ?`,
		formID,
	).Scan(&n)
	return n, errors.Wrap(err, "db.count_submissions")
}

// ListSubmissions returns a page of the submissions of a form, newest first.
// A negative limit returns all of them.
func ListSubmissions(ctx context.Context, db *sql.DB, formID int64, limit, offset int) ([]model.Submission, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			s.id, s.form_id, s.form_version, s.time, s.ip, s.user_agent,
			a.name, a.value
		FROM submission s
		LEFT OUTER JOIN submission_answer a ON (s.id = a.submission_id)
		WHERE s.id IN (
			SELECT id FROM submission
			WHERE form_id = ?
			ORDER BY time DESC, id DESC
			LIMIT ? OFFSET ?
		)
		ORDER BY s.time DESC, s.id DESC, a.name`,
		formID,
		limit,
		offset,
	)
	if err != nil {
		return nil, errors.Wrap(err, "db.list_submissions")
	}
	defer rows.Close()

	return scanSubmissions(rows, "db.list_submissions")
}

func GetSubmission(ctx context.Context, db *sql.DB, id int64) (model.Submission, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT
			s.id, s.form_id, s.form_version, s.time, s.ip, s.user_agent,
			a.name, a.value
		FROM submission s
		LEFT OUTER JOIN submission_answer a ON (s.id = a.submission_id)
		WHERE s.id = ?`,
		id,
	)
	if err != nil {
		return model.Submission{}, errors.Wrap(err, "db.get_submission")
	}
	defer rows.Close()

	submissions, err := scanSubmissions(rows, "db.get_submission")
	if err != nil {
		return model.Submission{}, err
	}
	if len(submissions) == 0 {
		return model.Submission{}, ErrNotFound
	}
	return submissions[0], nil
}

// scanSubmissions folds consecutive rows of the same submission together.
func scanSubmissions(rows *sql.Rows, code string) ([]model.Submission, error) {
	submissions := []model.Submission{}
	for rows.Next() {
		s := model.Submission{}
		var name, value sql.NullString
		err := rows.Scan(&s.ID, &s.FormID, &s.FormVersion, &s.Time, &s.IP, &s.UserAgent, &name, &value)
		if err != nil {
			return nil, errors.Wrap(err, code+".scan")
		}

		last := len(submissions) - 1
		if last < 0 || submissions[last].ID != s.ID {
			s.Answers = model.AnswerMap{}
			submissions = append(submissions, s)
			last++
		}
		if !name.Valid {
			continue
		}

		var v any
		err = json.Unmarshal([]byte(value.String), &v)
		if err != nil {
			return nil, errors.Wrap(err, code+".parse_value")
		}
		submissions[last].Answers[name.String] = v
	}
	return submissions, errors.Wrap(rows.Err(), code+".rows")
}

func DeleteSubmission(ctx context.Context, db *sql.DB, id int64) error {
	res, err := db.ExecContext(ctx, `
		DELETE FROM submission WHERE id = ?`,
		id,
	)
	if err != nil {
		return errors.Wrap(err, "db.delete_submission")
	}
	return affected(res, "db.delete_submission.verify")
}

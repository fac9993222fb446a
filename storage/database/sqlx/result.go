package sqlxdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kayembi/shule/core"
	"github.com/kayembi/shule/core/result"
)

const (
	resultColumns = `id, student_id, course_id, class_id, quarter_id, score, grade, teacher_comment, status,
		entered_by_id, submitted_at, approved_by_id, approved_at, rejection_reason, created_at, updated_at`
	semResultColumns = `id, student_id, course_id, semester_id, quarter_1_score, quarter_2_score,
		total, average, grade, teacher_comment, class_teacher_comment, principal_comment, created_at, updated_at`
)

type resultRepository struct {
	db *sqlx.DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *sql.DB) result.Repository {
	return &resultRepository{db: sqlx.NewDb(db, "postgres")}
}

func scanResult(s rowScanner) (result.QuarterlyResult, error) {
	var res result.QuarterlyResult
	var submittedAt, approvedAt sql.NullTime
	var approvedByID sql.NullString
	err := s.Scan(
		&res.ID, &res.StudentID, &res.CourseID, &res.ClassID, &res.QuarterID,
		&res.Score, &res.Grade, &res.TeacherComment, &res.Status, &res.EnteredByID,
		&submittedAt, &approvedByID, &approvedAt, &res.RejectionReason,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return result.QuarterlyResult{}, result.ErrNotFound
		}
		return result.QuarterlyResult{}, errors.Wrap(err, "scanning quarterly result")
	}
	res.SubmittedAt = submittedAt.Time
	res.ApprovedAt = approvedAt.Time
	res.ApprovedByID = approvedByID.String
	return res, nil
}

func scanSemesterResult(s rowScanner) (result.SemesterResult, error) {
	var res result.SemesterResult
	err := s.Scan(
		&res.ID, &res.StudentID, &res.CourseID, &res.SemesterID,
		&res.Quarter1Score, &res.Quarter2Score, &res.Total, &res.Average, &res.Grade,
		&res.TeacherComment, &res.ClassTeacherComment, &res.PrincipalComment,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return result.SemesterResult{}, result.ErrNotFound
		}
		return result.SemesterResult{}, errors.Wrap(err, "scanning semester result")
	}
	return res, nil
}

func (repo *resultRepository) UpsertResult(ctx context.Context, res result.QuarterlyResult, exec ...core.DBExecutor) (result.QuarterlyResult, error) {
	q := `
	INSERT INTO quarterly_results (
		id, student_id, course_id, class_id, quarter_id, score, grade, teacher_comment, status,
		entered_by_id, submitted_at, rejection_reason, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, '', $11, $12)
	ON CONFLICT (student_id, course_id, quarter_id) DO UPDATE SET
		class_id = EXCLUDED.class_id,
		score = EXCLUDED.score,
		grade = EXCLUDED.grade,
		teacher_comment = EXCLUDED.teacher_comment,
		status = EXCLUDED.status,
		entered_by_id = EXCLUDED.entered_by_id,
		submitted_at = NULL,
		rejection_reason = '',
		updated_at = EXCLUDED.updated_at
	RETURNING ` + resultColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		res.ID, res.StudentID, res.CourseID, res.ClassID, res.QuarterID,
		res.Score, res.Grade, res.TeacherComment, res.Status, res.EnteredByID, res.CreatedAt, res.UpdatedAt,
	)
	return scanResult(row)
}

func (repo *resultRepository) QueryResults(ctx context.Context, filter *result.Filter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]result.QuarterlyResult, error) {
	q := "SELECT " + resultColumns + " FROM quarterly_results"
	var clauses []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.QuarterID != "" {
			clauses = append(clauses, "quarter_id = "+arg(filter.QuarterID))
		}
		if filter.ClassID != "" {
			clauses = append(clauses, "class_id = "+arg(filter.ClassID))
		}
		if filter.CourseID != "" {
			clauses = append(clauses, "course_id = "+arg(filter.CourseID))
		}
		if filter.StudentID != "" {
			clauses = append(clauses, "student_id = "+arg(filter.StudentID))
		}
		if filter.Status != "" {
			clauses = append(clauses, "status = "+arg(filter.Status))
		}
		if filter.EnteredByID != "" {
			clauses = append(clauses, "entered_by_id = "+arg(filter.EnteredByID))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "created_at ASC")

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying quarterly results")
	}
	defer func() { _ = rows.Close() }()

	var results []result.QuarterlyResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, errors.Wrap(rows.Err(), "querying quarterly results")
}

func (repo *resultRepository) GetResult(ctx context.Context, filter result.GetFilter, exec ...core.DBExecutor) (result.QuarterlyResult, error) {
	q := "SELECT " + resultColumns + " FROM quarterly_results WHERE "
	var args []interface{}
	if filter.ID != "" {
		q += "id = $1"
		args = append(args, filter.ID)
	} else {
		q += "student_id = $1 AND course_id = $2 AND quarter_id = $3"
		args = append(args, filter.StudentID, filter.CourseID, filter.QuarterID)
	}
	return scanResult(executor(repo.db, exec).QueryRowContext(ctx, q, args...))
}

func (repo *resultRepository) SubmitDraftResults(ctx context.Context, quarterID, classID, courseID, enteredByID string, submittedAt time.Time, exec ...core.DBExecutor) (int, error) {
	q := `
	UPDATE quarterly_results
	SET status = $1, submitted_at = $2, updated_at = $2
	WHERE status = $3 AND quarter_id = $4 AND class_id = $5 AND course_id = $6 AND entered_by_id = $7`
	res, err := executor(repo.db, exec).ExecContext(ctx, q,
		result.StatusSubmitted, submittedAt, result.StatusDraft, quarterID, classID, courseID, enteredByID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "submitting draft results")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "submitting draft results")
}

func (repo *resultRepository) UpdateResultStatus(ctx context.Context, res result.QuarterlyResult, exec ...core.DBExecutor) (result.QuarterlyResult, error) {
	q := `
	UPDATE quarterly_results
	SET status = $2, approved_by_id = $3, approved_at = $4, rejection_reason = $5, updated_at = $6
	WHERE id = $1
	RETURNING ` + resultColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		res.ID, res.Status, nullString(res.ApprovedByID), nullTime(res.ApprovedAt),
		res.RejectionReason, res.UpdatedAt,
	)
	return scanResult(row)
}

func (repo *resultRepository) ApproveSubmittedResults(ctx context.Context, quarterID, approverID string, approvedAt time.Time, exec ...core.DBExecutor) (int, error) {
	q := `
	UPDATE quarterly_results
	SET status = $1, approved_by_id = $2, approved_at = $3, updated_at = $3
	WHERE status = $4 AND quarter_id = $5`
	res, err := executor(repo.db, exec).ExecContext(ctx, q,
		result.StatusApproved, approverID, approvedAt, result.StatusSubmitted, quarterID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "approving submitted results")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "approving submitted results")
}

func (repo *resultRepository) UpsertSemesterResults(ctx context.Context, results []result.SemesterResult, exec ...core.DBExecutor) (int, error) {
	q := `
	INSERT INTO semester_results (
		id, student_id, course_id, semester_id, quarter_1_score, quarter_2_score,
		total, average, grade, teacher_comment, class_teacher_comment, principal_comment,
		created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, '', '', '', $10, $11)
	ON CONFLICT (student_id, course_id, semester_id) DO UPDATE SET
		quarter_1_score = EXCLUDED.quarter_1_score,
		quarter_2_score = EXCLUDED.quarter_2_score,
		total = EXCLUDED.total,
		average = EXCLUDED.average,
		grade = EXCLUDED.grade,
		updated_at = EXCLUDED.updated_at`

	var n int
	err := runInTx(ctx, repo.db, exec, func(ex core.DBExecutor) error {
		for _, res := range results {
			if _, err := ex.ExecContext(ctx, q,
				res.ID, res.StudentID, res.CourseID, res.SemesterID,
				res.Quarter1Score, res.Quarter2Score, res.Total, res.Average, res.Grade,
				res.CreatedAt, res.UpdatedAt,
			); err != nil {
				return errors.Wrap(err, "upserting semester results")
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (repo *resultRepository) QuerySemesterResults(ctx context.Context, semesterID, studentID string, exec ...core.DBExecutor) ([]result.SemesterResult, error) {
	q := "SELECT " + semResultColumns + " FROM semester_results"
	var clauses []string
	var args []interface{}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}
	if semesterID != "" {
		clauses = append(clauses, "semester_id = "+arg(semesterID))
	}
	if studentID != "" {
		clauses = append(clauses, "student_id = "+arg(studentID))
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY student_id ASC, course_id ASC"

	rows, err := executor(repo.db, exec).QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying semester results")
	}
	defer func() { _ = rows.Close() }()

	var results []result.SemesterResult
	for rows.Next() {
		res, err := scanSemesterResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, errors.Wrap(rows.Err(), "querying semester results")
}

func (repo *resultRepository) GetSemesterResult(ctx context.Context, id string, exec ...core.DBExecutor) (result.SemesterResult, error) {
	q := "SELECT " + semResultColumns + " FROM semester_results WHERE id = $1"
	return scanSemesterResult(executor(repo.db, exec).QueryRowContext(ctx, q, id))
}

func (repo *resultRepository) UpdateSemesterComments(ctx context.Context, id string, comments result.SemesterComments, exec ...core.DBExecutor) (result.SemesterResult, error) {
	q := `
	UPDATE semester_results
	SET teacher_comment = $2, class_teacher_comment = $3, principal_comment = $4, updated_at = $5
	WHERE id = $1
	RETURNING ` + semResultColumns
	row := executor(repo.db, exec).QueryRowContext(ctx, q,
		id, comments.TeacherComment, comments.ClassTeacherComment, comments.PrincipalComment, time.Now().UTC(),
	)
	return scanSemesterResult(row)
}

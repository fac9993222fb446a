package sqlxdb

import (
	"context"
	"database/sql"
	"regexp"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/kayembi/shule/core"
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

var orderFieldRegex = regexp.MustCompile(`^[a-z_]+$`)

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == uniqueViolation
	}
	return false
}

// executor returns the caller-provided executor (a transaction usually) or
// falls back to the connection pool.
func executor(db *sqlx.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 {
		return exec[0]
	}
	return db
}

// runInTx runs fn in a transaction unless the caller already provided an
// executor, in which case the caller owns the transaction boundaries.
func runInTx(ctx context.Context, db *sqlx.DB, exec []core.DBExecutor, fn func(core.DBExecutor) error) error {
	if len(exec) > 0 {
		return fn(exec[0])
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// orderBy renders an ORDER BY clause, dropping fields that do not look like
// column names. Returns defaultOrder when nothing survives.
func orderBy(ordering []core.DBOrdering, defaultOrder string) string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if orderFieldRegex.MatchString(ord.Field) {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return " ORDER BY " + defaultOrder
	}
	return " ORDER BY " + strings.Join(clauses, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

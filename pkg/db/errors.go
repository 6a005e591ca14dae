package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// sqliteConstraintColumns maps named unique constraints to the table.column
// text sqlite reports in place of a constraint name.
var sqliteConstraintColumns = map[string]string{
	"carts_user_id_key":       "carts.user_id",
	"orders_order_number_key": "orders.order_number",
	"requests_order_id_key":   "requests.order_id",
	"idx_users_email":         "users.email",
}

// IsUniqueViolation reports whether err is a unique violation, optionally on a
// specific constraint. Postgres errors are matched by SQLSTATE; other drivers
// fall back to message inspection, where the constraint name also matches its
// table.column form.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if constraintName == "" || strings.Contains(msg, constraintName) {
		return true
	}
	column, ok := sqliteConstraintColumns[constraintName]
	return ok && strings.Contains(msg, column)
}

package postgres

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/commerce-core/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}

// duplicateOr traduce una violación de unicidad a domain.ErrDuplicate; lo demás queda envuelto.
func duplicateOr(err error, what string) error {
	if isUniqueViolation(err) {
		return domain.ErrDuplicate.Withf("%s", what)
	}
	return err
}

// nullable convierte "" en NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// limitClause arma LIMIT/OFFSET; limit <= 0 trae todo.
func limitClause(limit, offset int, args []any) (string, []any) {
	sql := ""
	if limit > 0 {
		args = append(args, limit)
		sql += " LIMIT $" + strconv.Itoa(len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		sql += " OFFSET $" + strconv.Itoa(len(args))
	}
	return sql, args
}

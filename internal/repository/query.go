package repository

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"farmart/internal/pagination"
)

// where accumulates AND-ed conditions written with ? placeholders
// and renumbers them into postgres $n parameters.
type where struct {
	conds []string
	args  []any
}

func newWhere() *where {
	return &where{}
}

func (w *where) add(cond string, args ...any) {
	for _, arg := range args {
		w.args = append(w.args, arg)
		cond = strings.Replace(cond, "?", "$"+strconv.Itoa(len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// paged appends the conditions, ordering and LIMIT/OFFSET to base
func (w *where) paged(base, orderBy string, page pagination.Params) (string, []any) {
	n := len(w.args)
	query := fmt.Sprintf("%s%s ORDER BY %s LIMIT $%d OFFSET $%d", base, w.sql(), orderBy, n+1, n+2)
	args := append(append([]any{}, w.args...), page.Limit(), page.Offset())
	return query, args
}

func like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

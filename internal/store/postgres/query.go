package postgres

import (
	"fmt"

	"github.com/alanyoungcy/liquidrouter/internal/domain"
)

// timeFilter renders the created_at bounds of opts as a WHERE clause.
func timeFilter(opts domain.ListOpts) (string, []any) {
	var (
		where string
		args  []any
	)
	if opts.Since != nil {
		args = append(args, *opts.Since)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	if where == "" {
		return "", args
	}
	return " WHERE" + where[len(" AND"):], args
}

// paginate appends LIMIT/OFFSET placeholders and their values to args.
func paginate(opts domain.ListOpts, args *[]any) string {
	var clause string
	if opts.Limit > 0 {
		*args = append(*args, opts.Limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(*args))
	}
	if opts.Offset > 0 {
		*args = append(*args, opts.Offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(*args))
	}
	return clause
}

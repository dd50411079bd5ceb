package session

import (
	"context"

	"github.com/xiaoma778/mybatis-3/mapperp"
)

// QueryWith runs query against db (honoring an in-flight transaction on ctx
// the same way Select/Update do) and drives the resulting rows through a
// hand-written mapperp.Mapper instead of a ResultMap, for callers who find
// it cheaper to compose a Mapper by hand than to register a ResultMap with
// package resultmap for a given join shape.
func QueryWith[Row any, Out any](ctx context.Context, db *DB, query string, args []any, mapper mapperp.Mapper[Row, Out]) (Out, error) {
	var zero Out
	rows, err := db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()
	return mapperp.Scan(rows, mapper)
}

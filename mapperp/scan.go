package mapperp

import (
	"database/sql"
	"reflect"

	"github.com/xiaoma778/mybatis-3/internal/reflection"
)

// Scan drives a Mapper combinator chain directly off *sql.Rows, the
// entry point that actually runs a hand-written Mapper against a query
// instead of against literal test fixtures: each physical row is scanned
// into a fresh Row via internal/reflection's "column"-tagged struct
// layout (the same tag resultmap.Materializer reads off a ResultMap),
// then fed to mapper along with its zero-based index, exactly the loop a
// <resultMap> with nested collections would otherwise drive.
func Scan[Row any, Out any](rows *sql.Rows, mapper Mapper[Row, Out]) (Out, error) {
	var out Out
	var zeroRow Row

	fields, err := reflection.RowFieldsFor(reflect.TypeOf(zeroRow))
	if err != nil {
		return out, err
	}
	scanner, err := fields.Rows(rows)
	if err != nil {
		return out, err
	}

	i := 0
	for scanner.Next() {
		val, err := scanner.Scan()
		if err != nil {
			return out, err
		}
		row := val.Elem().Interface().(Row)
		mapper(&out, &row, i)
		i++
	}
	if err := scanner.Err(); err != nil {
		return out, err
	}
	return out, nil
}

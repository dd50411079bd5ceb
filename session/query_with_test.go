package session

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xiaoma778/mybatis-3/mapperp"
)

func TestQueryWith_DrivesMapperOffRawQuery(t *testing.T) {
	db, ctx, cleanup := testDB(t)
	defer cleanup()
	john, albert := peopleSetup(ctx, db)

	mapper := mapperp.Slice(
		func(e *person) int64 { return e.ID },
		func(row *person) *person { return row },
	)

	people, err := QueryWith[person, []person](ctx, db, "SELECT id, first_name, last_name FROM people ORDER BY id ASC", nil, mapper)
	if err != nil {
		t.Fatalf("QueryWith failed: %v", err)
	}

	expected := []person{john, albert}
	if !cmp.Equal(people, expected, personComparer) {
		t.Errorf("queried people unexpected:\n%v", cmp.Diff(expected, people, personComparer))
	}
}

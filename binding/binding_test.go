package binding

import (
	"context"
	"reflect"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaoma778/mybatis-3/executor"
	"github.com/xiaoma778/mybatis-3/mapping"
	"github.com/xiaoma778/mybatis-3/resultmap"
	"github.com/xiaoma778/mybatis-3/session"
)

type widget struct {
	ID   int64
	Name string
}

// widgetMapper is a plain struct standing in for a MyBatis Mapper
// interface: BindMapper wires each Statement field to a statement ID
// instead of a proxy intercepting method calls.
type widgetMapper struct {
	FindByID *Statement[int64, *widget]
	FindAll  *Statement[struct{}, []*widget]
	Insert   *Statement[string, int64]
}

func TestBindMapper_DispatchesByCommandType(t *testing.T) {
	db, ctx, cleanup := testDB(t)
	defer cleanup()

	registry := resultmap.NewRegistry()
	registry.Add(&mapping.ResultMap{
		ID:   "Widget",
		Type: reflect.TypeOf(widget{}),
		PropertyMaps: []mapping.ResultMapping{
			{Property: "ID", Column: "id"},
			{Property: "Name", Column: "name"},
		},
	})

	statements := map[string]*mapping.MappedStatement{
		"Widgets.FindByID": {
			ID:          "Widgets.FindByID",
			Type:        mapping.Select,
			ResultMapID: "Widget",
			SqlSource:   staticSource("SELECT id, name FROM widgets WHERE id = ?", "_parameter"),
		},
		"Widgets.FindAll": {
			ID:          "Widgets.FindAll",
			Type:        mapping.Select,
			ResultMapID: "Widget",
			SqlSource:   staticSource("SELECT id, name FROM widgets ORDER BY id ASC"),
		},
		"Widgets.Insert": {
			ID:        "Widgets.Insert",
			Type:      mapping.Insert,
			SqlSource: staticSource("INSERT INTO widgets (name) VALUES (?)", "_parameter"),
		},
	}

	exec := executor.NewSimple(db, db.Dialect, registry)
	sess := session.NewSession(db, exec, statements)

	var mapper widgetMapper
	if err := BindMapper(sess, "Widgets", &mapper); err != nil {
		t.Fatalf("BindMapper failed: %v", err)
	}

	affected, err := mapper.Insert.Execute(ctx, "sprocket")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 row affected, got %d", affected)
	}

	all, err := mapper.FindAll.Execute(ctx, struct{}{})
	if err != nil {
		t.Fatalf("find all failed: %v", err)
	}
	if len(all) != 1 || all[0].Name != "sprocket" {
		t.Fatalf("unexpected widgets: %+v", all)
	}

	found, err := mapper.FindByID.Execute(ctx, all[0].ID)
	if err != nil {
		t.Fatalf("find by id failed: %v", err)
	}
	if found.Name != "sprocket" {
		t.Fatalf("unexpected widget: %+v", found)
	}
}

func TestConvertRows_MultipleRowsIntoScalarIsError(t *testing.T) {
	rows := []any{&widget{ID: 1, Name: "a"}, &widget{ID: 2, Name: "b"}}
	sig := MethodSignature{ReturnsMany: false, ElemType: reflect.TypeOf(&widget{})}

	_, err := convertRows[*widget](rows, sig)
	if err == nil {
		t.Fatal("expected an error for a multi-row result bound to a scalar return type")
	}
}

func TestConvertRows_SingleRowIntoScalarSucceeds(t *testing.T) {
	rows := []any{&widget{ID: 1, Name: "a"}}
	sig := MethodSignature{ReturnsMany: false, ElemType: reflect.TypeOf(&widget{})}

	got, err := convertRows[*widget](rows, sig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "a" {
		t.Fatalf("unexpected widget: %+v", got)
	}
}

////////////////////////////////////////////////////////////////////////////////

// staticSource builds a bare mapping.SqlSource for a fixed query string,
// binding each "?" to the named property read off the parameter ("_parameter"
// for a bare scalar parameter itself).
func staticSource(sql string, props ...string) mapping.SqlSource {
	mappings := make([]mapping.ParameterMapping, len(props))
	for i, p := range props {
		mappings[i] = mapping.ParameterMapping{Property: p}
	}
	return &mapping.StaticSqlSource{SQL: sql, ParameterMappings: mappings}
}

func testDB(t *testing.T) (*session.DB, context.Context, func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	db, err := session.Open("sqlite", "./binding_test.db")
	if err != nil {
		t.Fatalf("testDB failed to open: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("testDB failed to ping: %v", err)
	}
	if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS widgets"); err != nil {
		t.Fatalf("testDB failed to drop table: %v", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("testDB failed to create table: %v", err)
	}
	return db, ctx, func() {
		db.Close()
		cancel()
	}
}

package executor

import (
	"context"
	"database/sql"
	"reflect"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaoma778/mybatis-3/cache"
	"github.com/xiaoma778/mybatis-3/driver"
	"github.com/xiaoma778/mybatis-3/mapping"
	"github.com/xiaoma778/mybatis-3/resultmap"
)

type widget struct {
	ID   int64
	Name string
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec("CREATE TABLE widgets (id INTEGER, name TEXT)"); err != nil {
		t.Fatalf("creating table: %v", err)
	}
	return db
}

func widgetRegistry() *resultmap.Registry {
	r := resultmap.NewRegistry()
	r.Add(&mapping.ResultMap{
		ID:   "Widget",
		Type: reflect.TypeOf(widget{}),
		PropertyMaps: []mapping.ResultMapping{
			{Property: "ID", Column: "id"},
			{Property: "Name", Column: "name"},
		},
	})
	return r
}

func selectAllWidgets() *mapping.MappedStatement {
	return &mapping.MappedStatement{
		ID:          "Widgets.SelectAll",
		Type:        mapping.Select,
		SqlSource:   &mapping.StaticSqlSource{SQL: "SELECT id, name FROM widgets ORDER BY id"},
		ResultMapID: "Widget",
		UseCache:    true,
	}
}

func insertWidget() *mapping.MappedStatement {
	return &mapping.MappedStatement{
		ID:         "Widgets.Insert",
		Type:       mapping.Insert,
		SqlSource:  &mapping.StaticSqlSource{SQL: "INSERT INTO widgets (id, name) VALUES (?, ?)", ParameterMappings: []mapping.ParameterMapping{{Property: "ID"}, {Property: "Name"}}},
		FlushCache: true,
	}
}

func TestSimple_QueryCachesInL1UntilAnyUpdate(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec("INSERT INTO widgets VALUES (1, 'sprocket')"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	e := NewSimple(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()
	sel, ins := selectAllWidgets(), insertWidget()

	first, err := e.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 widget, got %d", len(first))
	}

	// Insert a second row directly, bypassing the executor, so a cache hit
	// is distinguishable from a fresh query.
	if _, err := db.Exec("INSERT INTO widgets VALUES (2, 'gadget')"); err != nil {
		t.Fatalf("direct insert: %v", err)
	}

	second, err := e.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected the L1 cache hit to still report 1 widget, got %d", len(second))
	}

	if _, err := e.Update(ctx, ins, widget{ID: 3, Name: "widget"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	third, err := e.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(third) != 3 {
		t.Fatalf("expected Update to clear the L1 cache so the next Query sees all 3 widgets, got %d", len(third))
	}
}

// TestSimple_UpdateClearsLocalCacheEvenWithoutFlushCache is a regression
// test: BaseExecutor.update clears L1 unconditionally, before the FlushCache
// flag is ever consulted (that flag only controls the L2 namespace cache).
func TestSimple_UpdateClearsLocalCacheEvenWithoutFlushCache(t *testing.T) {
	db := testDB(t)
	e := NewSimple(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()
	sel := selectAllWidgets()

	if _, err := e.Query(ctx, sel, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}

	noFlush := insertWidget()
	noFlush.FlushCache = false
	if _, err := e.Update(ctx, noFlush, widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	out, err := e.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the L1 cache to be cleared by Update regardless of FlushCache, got %d widgets", len(out))
	}
}

func TestCaching_QueryServesFromL2AcrossFreshDelegates(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec("INSERT INTO widgets VALUES (1, 'sprocket')"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	registry := widgetRegistry()
	manager := cache.NewManager()
	l2 := cache.NewPerpetual("Widgets")
	caches := map[string]cache.Cache{"Widgets.SelectAll": l2}

	c := NewCaching(NewSimple(db, driver.SQLite, registry), manager, caches)
	ctx := context.Background()
	sel := selectAllWidgets()

	if _, err := c.Query(ctx, sel, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}
	c.Commit()

	if _, err := db.Exec("INSERT INTO widgets VALUES (2, 'gadget')"); err != nil {
		t.Fatalf("direct insert: %v", err)
	}

	// A brand new delegate (fresh L1) still sees the L2 hit.
	c2 := NewCaching(NewSimple(db, driver.SQLite, registry), manager, caches)
	out, err := c2.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected the L2 cache hit to still report 1 widget, got %d", len(out))
	}
}

func TestCaching_UpdateClearsL2OnlyWhenFlushCacheIsSet(t *testing.T) {
	db := testDB(t)
	if _, err := db.Exec("INSERT INTO widgets VALUES (1, 'sprocket')"); err != nil {
		t.Fatalf("seed insert: %v", err)
	}
	registry := widgetRegistry()
	manager := cache.NewManager()
	l2 := cache.NewPerpetual("Widgets")
	caches := map[string]cache.Cache{"Widgets.SelectAll": l2, "Widgets.Insert": l2}
	ctx := context.Background()
	sel := selectAllWidgets()

	c := NewCaching(NewSimple(db, driver.SQLite, registry), manager, caches)
	if _, err := c.Query(ctx, sel, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}
	c.Commit()

	ins := insertWidget()
	if _, err := c.Update(ctx, ins, widget{ID: 2, Name: "gadget"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	c.Commit()

	out, err := c.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected FlushCache to invalidate the L2 entry so the refreshed query sees 2 widgets, got %d", len(out))
	}
}

func TestCaching_SetSelectorPassesThroughToDelegate(t *testing.T) {
	registry := widgetRegistry()
	simple := NewSimple(testDB(t), driver.SQLite, registry)
	c := NewCaching(simple, cache.NewManager(), map[string]cache.Cache{})

	selector := resultmap.Selector(stubSelector{})
	c.SetSelector(selector)
	if simple.selector == nil {
		t.Fatal("expected Caching.SetSelector to reach the delegate Executor")
	}
}

type stubSelector struct{}

func (stubSelector) Select(ctx context.Context, statementID string, parameter any) ([]any, error) {
	return nil, nil
}

func TestReuse_PreparesEachDistinctSQLTextOnce(t *testing.T) {
	db := testDB(t)
	e := NewReuse(db, driver.SQLite, widgetRegistry())
	defer e.Close()
	ctx := context.Background()
	ins := insertWidget()

	if _, err := e.Update(ctx, ins, widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := e.Update(ctx, ins, widget{ID: 2, Name: "gadget"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(e.stmts) != 1 {
		t.Fatalf("expected one cached prepared statement for the one distinct SQL text, got %d", len(e.stmts))
	}

	sel := selectAllWidgets()
	sel.UseCache = false
	out, err := e.Query(ctx, sel, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 widgets, got %d", len(out))
	}
}

func TestReuse_CloseClosesEveryPreparedStatement(t *testing.T) {
	db := testDB(t)
	e := NewReuse(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()

	if _, err := e.Update(ctx, insertWidget(), widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(e.stmts) != 0 {
		t.Fatalf("expected Close to empty the statement map, got %d remaining", len(e.stmts))
	}
}

func TestBatch_GroupsConsecutiveUpdatesWithTheSameSQLUnderOneStatement(t *testing.T) {
	db := testDB(t)
	e := NewBatch(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()
	ins := insertWidget()

	if _, err := e.Update(ctx, ins, widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	firstStmt := e.currentStmt
	if _, err := e.Update(ctx, ins, widget{ID: 2, Name: "gadget"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.currentStmt != firstStmt {
		t.Fatal("expected consecutive updates with the same SQL text to reuse the in-progress statement")
	}
}

func TestBatch_DifferentSQLFlushesThePreviousStatement(t *testing.T) {
	db := testDB(t)
	e := NewBatch(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()

	if _, err := e.Update(ctx, insertWidget(), widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	firstStmt := e.currentStmt

	other := &mapping.MappedStatement{
		ID:        "Widgets.Rename",
		Type:      mapping.Update,
		SqlSource: &mapping.StaticSqlSource{SQL: "UPDATE widgets SET name = ? WHERE id = ?", ParameterMappings: []mapping.ParameterMapping{{Property: "Name"}, {Property: "ID"}}},
	}
	if _, err := e.Update(ctx, other, widget{ID: 1, Name: "renamed"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.currentStmt == firstStmt {
		t.Fatal("expected a different SQL text to flush the previous statement and prepare a new one")
	}
}

func TestBatch_QueryFlushesAnyRunInProgressFirst(t *testing.T) {
	db := testDB(t)
	e := NewBatch(db, driver.SQLite, widgetRegistry())
	ctx := context.Background()

	if _, err := e.Update(ctx, insertWidget(), widget{ID: 1, Name: "sprocket"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if e.currentStmt == nil {
		t.Fatal("expected a run in progress before the query")
	}

	sel := selectAllWidgets()
	sel.UseCache = false
	if _, err := e.Query(ctx, sel, nil); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if e.currentStmt != nil {
		t.Fatal("expected Query to flush the in-progress batch statement first")
	}
}

func TestBatch_FlushStatementsIsANoOpWithNothingPending(t *testing.T) {
	e := NewBatch(testDB(t), driver.SQLite, widgetRegistry())
	if err := e.FlushStatements(); err != nil {
		t.Fatalf("expected a no-op flush to succeed, got %v", err)
	}
}

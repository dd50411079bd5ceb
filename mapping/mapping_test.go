package mapping

import (
	"testing"

	"github.com/xiaoma778/mybatis-3/ast"
)

type mappingWidget struct {
	ID   int64
	Name string
}

func TestStaticSqlSource_ResolvesPlaceholdersInOrder(t *testing.T) {
	src := &StaticSqlSource{
		SQL: "SELECT * FROM widgets WHERE id = ? AND name = ?",
		ParameterMappings: []ParameterMapping{
			{Property: "ID"},
			{Property: "Name"},
		},
	}
	bound, err := src.BoundSQL(mappingWidget{ID: 1, Name: "sprocket"})
	if err != nil {
		t.Fatalf("BoundSQL: %v", err)
	}
	if bound.SQL != src.SQL {
		t.Fatalf("expected SQL to pass through unchanged, got %q", bound.SQL)
	}
	if len(bound.Args) != 2 || bound.Args[0] != int64(1) || bound.Args[1] != "sprocket" {
		t.Fatalf("unexpected args: %v", bound.Args)
	}
}

func TestStaticSqlSource_UnresolvedPropertyBecomesNilArg(t *testing.T) {
	src := &StaticSqlSource{
		SQL:               "SELECT * FROM widgets WHERE id = ?",
		ParameterMappings: []ParameterMapping{{Property: "Missing"}},
	}
	bound, err := src.BoundSQL(mappingWidget{ID: 1})
	if err != nil {
		t.Fatalf("BoundSQL: %v", err)
	}
	if len(bound.Args) != 1 || bound.Args[0] != nil {
		t.Fatalf("expected a nil arg for an unresolved property, got %v", bound.Args)
	}
}

func TestDynamicSqlSource_RendersNodeTreePerCall(t *testing.T) {
	src := &DynamicSqlSource{
		Root: ast.Where(&ast.If{
			Test: "Name != ''",
			Then: ast.Mixed{ast.Static("AND name ="), &ast.Placeholder{Expression: "Name"}},
		}),
	}

	bound, err := src.BoundSQL(mappingWidget{Name: "sprocket"})
	if err != nil {
		t.Fatalf("BoundSQL: %v", err)
	}
	if bound.SQL != "WHERE name = ?" {
		t.Fatalf("unexpected sql: %q", bound.SQL)
	}
	if len(bound.Args) != 1 || bound.Args[0] != "sprocket" {
		t.Fatalf("unexpected args: %v", bound.Args)
	}

	bound, err = src.BoundSQL(mappingWidget{})
	if err != nil {
		t.Fatalf("BoundSQL with no name: %v", err)
	}
	if bound.SQL != "" {
		t.Fatalf("expected an empty WHERE clause when the If's test is false, got %q", bound.SQL)
	}
}

func TestNewRawSqlSource_PreRendersAgainstEmptyParameter(t *testing.T) {
	root := ast.Mixed{ast.Static("SELECT 1")}
	src, err := NewRawSqlSource(root)
	if err != nil {
		t.Fatalf("NewRawSqlSource: %v", err)
	}
	if src.SQL != "SELECT 1" {
		t.Fatalf("unexpected sql: %q", src.SQL)
	}
	if len(src.ParameterMappings) != 0 {
		t.Fatalf("expected no parameter mappings for a tag-free raw source, got %v", src.ParameterMappings)
	}
}

func TestParameterBindings_StructExposesFieldsByName(t *testing.T) {
	b := ParameterBindings(mappingWidget{ID: 1, Name: "sprocket"})
	if v, ok := b.Get("Name"); !ok || v != "sprocket" {
		t.Fatalf("expected struct field access, got %v, %v", v, ok)
	}
	if v, ok := b.Get("_parameter"); !ok {
		t.Fatalf("expected _parameter to resolve to the whole parameter object, got %v, %v", v, ok)
	}
}

func TestParameterBindings_MapIsUsedDirectly(t *testing.T) {
	b := ParameterBindings(map[string]any{"id": 1})
	if v, ok := b.Get("id"); !ok || v != 1 {
		t.Fatalf("expected map binding passthrough, got %v, %v", v, ok)
	}
}

func TestParameterBindings_NilParameterIsEmptyBindings(t *testing.T) {
	b := ParameterBindings(nil)
	if _, ok := b.Get("anything"); ok {
		t.Fatal("expected a nil parameter to resolve nothing")
	}
}

func TestStatementType_String(t *testing.T) {
	tests := map[StatementType]string{
		Select:  "SELECT",
		Insert:  "INSERT",
		Update:  "UPDATE",
		Delete:  "DELETE",
		Unknown: "UNKNOWN",
	}
	for typ, expected := range tests {
		if got := typ.String(); got != expected {
			t.Errorf("StatementType(%d).String() = %q, want %q", typ, got, expected)
		}
	}
}

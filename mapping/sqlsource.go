// Package mapping models a compiled mapper statement: its SqlSource (the
// thing that turns a parameter object into BoundSql), its ParameterMappings,
// and its ResultMap-driven row materialization. Grounded on
// org.apache.ibatis.mapping (SqlSource/BoundSql/ParameterMapping/
// ResultMap/ResultMapping/Discriminator in original_source) translated into
// the ast.Node tree built in package ast, and on powerputtygo's
// sqlp.Mapping[E]/sqlp.Mapper[E] for how a Go port expresses "one query, one
// destination type" without annotations.
package mapping

import (
	"fmt"

	"github.com/xiaoma778/mybatis-3/ast"
	"github.com/xiaoma778/mybatis-3/internal/ognl"
	"github.com/xiaoma778/mybatis-3/internal/reflection"
)

// BoundSql is the final, ready-to-execute rendering of a statement: literal
// driver SQL plus its positional arguments, matching
// org.apache.ibatis.mapping.BoundSql stripped of the Configuration-specific
// metadata accessors this port doesn't need.
type BoundSql struct {
	SQL  string
	Args []any
}

// SqlSource turns a parameter object into a BoundSql. There are two
// concrete implementations: StaticSqlSource for statements with no dynamic
// tags (the common case, and the only kind that needs no per-call tree
// walk), and DynamicSqlSource for statements built from an ast.Node tree.
type SqlSource interface {
	BoundSQL(parameter any) (*BoundSql, error)
}

// StaticSqlSource is a statement whose text never changes across calls: its
// #{...} placeholders have already been rewritten to "?" and its
// ParameterMappings list, in order, what property each placeholder reads.
// Equivalent to org.apache.ibatis.builder.StaticSqlSource.
type StaticSqlSource struct {
	SQL              string
	ParameterMappings []ParameterMapping
}

func (s *StaticSqlSource) BoundSQL(parameter any) (*BoundSql, error) {
	args := make([]any, len(s.ParameterMappings))
	bindings := ParameterBindings(parameter)
	for i, pm := range s.ParameterMappings {
		v, ok, err := ognl.Resolve(pm.Property, bindings)
		if err != nil {
			return nil, fmt.Errorf("mapping: resolving parameter %q: %w", pm.Property, err)
		}
		if !ok {
			v = nil
		}
		args[i] = v
	}
	return &BoundSql{SQL: s.SQL, Args: args}, nil
}

// DynamicSqlSource is a statement containing <if>/<choose>/<foreach>/etc:
// its ast.Node tree is walked fresh on every call since the rendered SQL
// (and so which placeholders even exist) depends on the parameter object.
// Equivalent to org.apache.ibatis.scripting.xmltags.DynamicSqlSource.
type DynamicSqlSource struct {
	Root ast.Node
}

func (s *DynamicSqlSource) BoundSQL(parameter any) (*BoundSql, error) {
	ctx := ast.NewContext(ParameterBindings(parameter))
	if err := s.Root.Apply(ctx); err != nil {
		return nil, err
	}
	return &BoundSql{SQL: ctx.SQL(), Args: ctx.Args()}, nil
}

// RawSqlSource is a DynamicSqlSource pre-rendered once at configuration
// load time against an empty parameter, for the (common) statement that
// contains ${...}-free dynamic tags whose output doesn't actually depend on
// parameter values (e.g. a <choose> picking between two fixed table
// names via a compile-time property). Equivalent to
// org.apache.ibatis.scripting.xmltags.RawSqlSource; callers that don't need
// this optimization can just use DynamicSqlSource directly.
func NewRawSqlSource(root ast.Node) (*StaticSqlSource, error) {
	ctx := ast.NewContext(ognl.MapBindings{})
	if err := root.Apply(ctx); err != nil {
		return nil, fmt.Errorf("mapping: pre-rendering raw sql source: %w", err)
	}
	mappings := make([]ParameterMapping, len(ctx.Args()))
	return &StaticSqlSource{SQL: ctx.SQL(), ParameterMappings: mappings}, nil
}

// ParameterMapping describes one #{...} placeholder: the property path it
// reads and, optionally, the JDBC-style type metadata MyBatis allows after
// a comma (jdbcType=, mode=, for stored-procedure OUT/INOUT parameters).
// Equivalent to org.apache.ibatis.mapping.ParameterMapping.
type ParameterMapping struct {
	Property string
	JdbcType string
	Mode     ParameterMode
}

type ParameterMode int

const (
	ModeIn ParameterMode = iota
	ModeOut
	ModeInOut
)

// ParameterBindings adapts an arbitrary Go parameter value (a struct, a
// pointer to one, or a map[string]any) to ognl.Bindings, the same role
// DynamicContext.ContextMap plays for MyBatis's Object parameterObject.
func ParameterBindings(parameter any) ognl.Bindings {
	if parameter == nil {
		return ognl.MapBindings{}
	}
	if b, ok := parameter.(ognl.Bindings); ok {
		return b
	}
	if m, ok := parameter.(map[string]any); ok {
		return ognl.MapBindings(m)
	}
	return &structBindings{value: parameter}
}

// structBindings treats a single struct/pointer parameter as a namespace of
// its exported field names, the common "pass one struct as the mapper
// argument" path. A bare scalar parameter is exposed under the reserved
// name "_parameter" (mirroring ParamNameResolver's GENERIC_NAME_PREFIX
// fallback for single non-collection arguments).
type structBindings struct {
	value any
}

func (s *structBindings) Get(name string) (any, bool) {
	if name == "_parameter" {
		return s.value, true
	}
	v, err := reflection.GetPath(s.value, name)
	if err != nil {
		return nil, false
	}
	return v, true
}

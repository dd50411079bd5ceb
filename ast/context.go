// Package ast models dynamic SQL as a tree of nodes, each of which knows
// how to render itself into a shared DynamicContext. It is grounded on two
// sources: the node-tree shape of org.apache.ibatis.scripting.xmltags (the
// Java reference under original_source) for the Trim/Foreach semantics, and
// eatmoreapple/juice's node.go for how that tree looks once translated into
// idiomatic Go (Node interface, struct-per-node-kind, no inheritance).
package ast

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/xiaoma778/mybatis-3/internal/ognl"
)

// Node is one element of a dynamic SQL statement's parse tree. Apply
// renders the node against ctx, appending literal SQL and/or parameter
// placeholders as it goes.
type Node interface {
	Apply(ctx *Context) error
}

// Context accumulates the SQL text and parameter bindings produced while
// walking a Node tree, mirroring org.apache.ibatis.scripting.xmltags.DynamicContext.
// It tracks the raw SQL text, the positional argument values that #{...}
// Placeholder nodes append, and the ${...}/<bind> binding namespace the
// tree evaluates expressions against.
type Context struct {
	bindings    ognl.Bindings
	extra       map[string]any
	sql         strings.Builder
	args        []any
	uniqueCount int64
}

// NewContext builds a context whose property lookups are satisfied by
// parameterBindings, with an empty overlay namespace for <bind> variables
// declared by the statement itself.
func NewContext(parameterBindings ognl.Bindings) *Context {
	return &Context{bindings: parameterBindings, extra: map[string]any{}}
}

// Get implements ognl.Bindings, preferring <bind>-declared names over the
// statement's parameter object, matching DynamicContext.ContextMap's
// extraContextMap-then-delegate lookup order.
func (c *Context) Get(name string) (any, bool) {
	if v, ok := c.extra[name]; ok {
		return v, true
	}
	return c.bindings.Get(name)
}

// Bind declares a named variable visible to the rest of the tree, as the
// <bind var="x" value="..."/> element does.
func (c *Context) Bind(name string, value any) {
	c.extra[name] = value
}

// AppendSQL appends a literal fragment of rendered SQL.
func (c *Context) AppendSQL(s string) {
	if s == "" {
		return
	}
	if c.sql.Len() > 0 {
		c.sql.WriteByte(' ')
	}
	c.sql.WriteString(s)
}

// SQL returns the accumulated SQL text so far.
func (c *Context) SQL() string { return c.sql.String() }

// AppendArg records a resolved parameter value in the same order its
// placeholder was written to the SQL buffer.
func (c *Context) AppendArg(v any) {
	c.args = append(c.args, v)
}

// Args returns the parameter values accumulated so far, positionally
// aligned with the "?" placeholders written into SQL().
func (c *Context) Args() []any { return c.args }

// NextUnique returns a small monotonically increasing counter, mirroring
// DynamicContext.getUniqueNumber. No node in this package calls it: Foreach
// binds each iteration's values positionally through AppendArg and does not
// rename parameters with "__frch_" suffixes.
func (c *Context) NextUnique() int64 {
	return atomic.AddInt64(&c.uniqueCount, 1)
}

// Mixed applies a sequence of child nodes in order, the equivalent of
// MixedSqlNode: the common container for a statement's top-level children.
type Mixed []Node

func (m Mixed) Apply(ctx *Context) error {
	for _, n := range m {
		if err := n.Apply(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Static is literal SQL text containing no ${...} substitutions, rendered
// as-is. Distinguishing Static from Text (see text.go) lets a statement
// skip substitution scanning entirely for the (common) fragments that
// don't need it, the same optimization TextSqlNode.isDynamic() exists for.
type Static string

func (s Static) Apply(ctx *Context) error {
	ctx.AppendSQL(string(s))
	return nil
}

// errEval wraps an ognl evaluation failure with the offending node kind,
// so a malformed <if test="..."> reports which construct it came from.
func errEval(kind, expr string, err error) error {
	return fmt.Errorf("ast: %s %q: %w", kind, expr, err)
}

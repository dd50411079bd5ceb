package ast

import (
	"fmt"

	"github.com/xiaoma778/mybatis-3/internal/ognl"
)

// Placeholder is a single #{expr[,attr=val,...]} parameter reference. It
// writes a single "?" to the SQL buffer and resolves Expression against the
// live context to append the matching driver argument, in the same
// position. Resolving per-Apply (rather than once, up front) is what lets a
// <foreach> loop bind a fresh value for the same expression text on every
// iteration, the same role ForEachSqlNode's per-iteration FilteredDynamicContext
// plays for "#{item}" in the Java implementation.
//
// JdbcType/TypeHandler/Mode metadata (the attr=val pairs MyBatis allows
// after the property name, e.g. #{id,jdbcType=NUMERIC}) is not handled
// here: Placeholder only knows the bare property path in Expression and
// does not parse attr=val pairs. Package mapping's ParameterMapping carries
// such metadata for StaticSqlSource statements only.
type Placeholder struct {
	Expression string
	Render     func(expr string, ctx *Context) (any, error)
}

func (n *Placeholder) Apply(ctx *Context) error {
	ctx.AppendSQL("?")
	if n.Render != nil {
		v, err := n.Render(n.Expression, ctx)
		if err != nil {
			return errEval("placeholder", n.Expression, err)
		}
		ctx.AppendArg(v)
		return nil
	}
	v, ok, err := ognl.Resolve(n.Expression, ctx)
	if err != nil {
		return errEval("placeholder", n.Expression, err)
	}
	if !ok {
		return fmt.Errorf("ast: placeholder %q: no such property", n.Expression)
	}
	ctx.AppendArg(v)
	return nil
}

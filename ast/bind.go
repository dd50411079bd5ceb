package ast

import "github.com/xiaoma778/mybatis-3/internal/ognl"

// VarDecl implements <bind var="name" value="expr"/>: evaluates Expression
// once and exposes it under Name for the remainder of the statement. Unlike
// If/Choose's test expressions, Value here produces a value rather than a
// boolean, so bound names can carry computed strings (e.g. a LIKE pattern
// built from a parameter) into later ${name} substitutions or #{name}
// placeholders.
type VarDecl struct {
	Name  string
	Value string
}

func (n *VarDecl) Apply(ctx *Context) error {
	v, err := ognl.Evaluate(n.Value, ctx)
	if err != nil {
		return errEval("bind", n.Value, err)
	}
	ctx.Bind(n.Name, v)
	return nil
}

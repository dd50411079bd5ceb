package ast

import "github.com/xiaoma778/mybatis-3/internal/ognl"

// If renders Then only when Test evaluates truthy against the current
// context, the direct equivalent of IfSqlNode.
type If struct {
	Test string
	Then Node
}

func (n *If) Apply(ctx *Context) error {
	ok, err := ognl.EvaluateBoolean(n.Test, ctx)
	if err != nil {
		return errEval("if", n.Test, err)
	}
	if !ok {
		return nil
	}
	return n.Then.Apply(ctx)
}

// When is one branch of a Choose node: like If but choice stops at the
// first matching branch rather than evaluating every child.
type When struct {
	Test string
	Then Node
}

// Choose evaluates Whens in order and applies the first matching branch;
// if none match, Otherwise runs when set. Mirrors ChooseSqlNode.
type Choose struct {
	Whens     []When
	Otherwise Node
}

func (n *Choose) Apply(ctx *Context) error {
	for _, w := range n.Whens {
		ok, err := ognl.EvaluateBoolean(w.Test, ctx)
		if err != nil {
			return errEval("choose/when", w.Test, err)
		}
		if ok {
			return w.Then.Apply(ctx)
		}
	}
	if n.Otherwise != nil {
		return n.Otherwise.Apply(ctx)
	}
	return nil
}

package ast

import (
	"fmt"

	"github.com/xiaoma778/mybatis-3/internal/ognl"
	"github.com/xiaoma778/mybatis-3/internal/tokenizer"
)

// Text is a SQL fragment that may contain ${...} text substitutions:
// expressions evaluated and spliced into the SQL verbatim (no bind
// parameter is created), matching TextSqlNode's GenericTokenParser pass
// over "${" / "}".
//
// It does NOT handle #{...} placeholders; those are separate Placeholder
// nodes (see placeholder.go), which write "?" and append the bound value
// as an argument instead of splicing it into the text.
type Text string

func (t Text) Apply(ctx *Context) error {
	var evalErr error
	parser := tokenizer.New("${", "}", func(expr string) string {
		v, ok, err := ognl.Resolve(expr, ctx)
		if err != nil {
			evalErr = err
			return ""
		}
		if !ok {
			evalErr = fmt.Errorf("ast: text substitution %q: no such property", expr)
			return ""
		}
		return fmt.Sprint(v)
	})
	rendered := parser.Parse(string(t))
	if evalErr != nil {
		return evalErr
	}
	ctx.AppendSQL(rendered)
	return nil
}

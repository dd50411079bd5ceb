// Package query is a small ad-hoc SQL builder for call sites that want a
// named-parameter query without going through a full mapper XML/ResultMap
// statement -- a migration script, a one-off admin query, an internal
// health check. Adapted from powerputtygo's queryp package, rewired onto
// driver.Dialect's Placeholderer instead of its own duplicate type so both
// this package and the ast/mapping statement pipeline agree on what a
// placeholder looks like for a given dialect.
package query

import (
	"fmt"
	"strings"

	"github.com/xiaoma778/mybatis-3/driver"
)

// Args accumulates positional arguments while handing back the dialect's
// placeholder text for each one as it's added, the building block
// NamedQuery assembles its positional arguments with.
type Args struct {
	placeholder driver.Placeholderer
	args        []any
}

func NewArgs(p driver.Placeholderer) *Args {
	if p == nil {
		p = driver.SQLite.Placeholder
	}
	return &Args{placeholder: p}
}

// Add records arg and returns the placeholder text for its position.
func (a *Args) Add(arg any) string {
	a.args = append(a.args, arg)
	return a.placeholder(len(a.args) - 1)
}

func (a *Args) Args() []any { return a.args }

// NamedQuery rewrites ":name"-style placeholders in a query string into
// positional placeholders, deferring the rewrite until String/Args/Execute
// is called so the Placeholderer (and so the final placeholder syntax) can
// be set after the named parameters themselves.
type NamedQuery struct {
	query       string
	params      map[string]any
	placeholder driver.Placeholderer

	builtQuery string
	builtArgs  *Args
}

// Named starts a NamedQuery from a query string containing ":name" tokens.
func Named(query string) *NamedQuery {
	return &NamedQuery{query: query, params: map[string]any{}}
}

func (n *NamedQuery) WithDialect(d driver.Dialect) *NamedQuery {
	n.reset()
	n.placeholder = d.Placeholder
	return n
}

func (n *NamedQuery) Param(key string, v any) *NamedQuery {
	n.reset()
	n.params[key] = v
	return n
}

func (n *NamedQuery) Params(m map[string]any) *NamedQuery {
	n.reset()
	for k, v := range m {
		n.params[k] = v
	}
	return n
}

// String returns the final query with every ":name" replaced by its
// dialect placeholder.
func (n *NamedQuery) String() string {
	n.ensureBuilt()
	return n.builtQuery
}

// Args returns the positional arguments matching String()'s placeholders.
func (n *NamedQuery) Args() []any {
	n.ensureBuilt()
	return n.builtArgs.Args()
}

// Execute is a convenience for String()+Args() together.
func (n *NamedQuery) Execute() (string, []any) {
	n.ensureBuilt()
	return n.builtQuery, n.builtArgs.Args()
}

func (n *NamedQuery) reset() {
	n.builtQuery = ""
	n.builtArgs = nil
}

func (n *NamedQuery) ensureBuilt() {
	if n.builtArgs != nil {
		return
	}
	n.builtArgs = NewArgs(n.placeholder)

	var q strings.Builder
	for i := 0; i < len(n.query); i++ {
		c := n.query[i]
		matched := false
		if c == ':' {
			for k, v := range n.params {
				token := fmt.Sprintf(":%s", k)
				if strings.HasPrefix(n.query[i:], token) {
					q.WriteString(n.builtArgs.Add(v))
					i += len(k)
					matched = true
					break
				}
			}
		}
		if !matched {
			q.WriteByte(c)
		}
	}
	n.builtQuery = q.String()
}

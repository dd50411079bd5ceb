package ast

import "strings"

// Trim renders Content into an isolated buffer, then adds Prefix/Suffix
// around the result (or strips one of PrefixesToOverride/SuffixesToOverride
// first if the trimmed text starts/ends with one), the direct equivalent of
// TrimSqlNode. Matching is case-insensitive, same as the Java original's
// toUpperCase comparison.
type Trim struct {
	Content             Node
	Prefix, Suffix      string
	PrefixesToOverride  []string
	SuffixesToOverride  []string
}

func (n *Trim) Apply(ctx *Context) error {
	// Render into an isolated buffer so the prefix/suffix logic can inspect
	// and rewrite the whole fragment before it joins the outer SQL, mirroring
	// FilteredDynamicContext's private sqlBuffer. Args are still appended to
	// the real ctx in place, since #{...} placeholders must resolve against
	// whatever bindings are live at render time (important inside <foreach>).
	inner := &Context{bindings: ctx, extra: map[string]any{}}
	if err := n.Content.Apply(inner); err != nil {
		return err
	}
	for _, a := range inner.Args() {
		ctx.AppendArg(a)
	}

	sql := strings.TrimSpace(inner.SQL())
	if sql != "" {
		upper := strings.ToUpper(sql)
		sql = applyPrefix(sql, upper, n.Prefix, n.PrefixesToOverride)
		upper = strings.ToUpper(sql)
		sql = applySuffix(sql, upper, n.Suffix, n.SuffixesToOverride)
	}
	ctx.AppendSQL(sql)
	return nil
}

func applyPrefix(sql, upperSQL, prefix string, overrides []string) string {
	for _, o := range overrides {
		if strings.HasPrefix(upperSQL, o) {
			sql = strings.TrimSpace(sql[len(o):])
			break
		}
	}
	if prefix != "" {
		sql = prefix + " " + sql
	}
	return sql
}

func applySuffix(sql, upperSQL, suffix string, overrides []string) string {
	for _, o := range overrides {
		if strings.HasSuffix(upperSQL, o) {
			sql = strings.TrimSpace(sql[:len(sql)-len(o)])
			break
		}
	}
	if suffix != "" {
		sql = sql + " " + suffix
	}
	return sql
}

// Where is Trim specialized for the common "WHERE" wrapper: it prepends
// WHERE and strips a leading AND/OR the contained conditions may have left
// behind, matching WhereSqlNode's fixed override set. Each token carries
// its own trailing whitespace boundary (a space, tab, or newline) rather
// than a bare "AND"/"OR", so a body like "android_id = 5" doesn't get its
// first three letters mistaken for the keyword -- HasPrefix only matches
// when that boundary character is actually present.
func Where(content Node) *Trim {
	return &Trim{
		Content: content,
		Prefix:  "WHERE",
		PrefixesToOverride: []string{
			"AND ", "OR ",
			"AND\n", "OR\n",
			"AND\r", "OR\r",
			"AND\t", "OR\t",
		},
	}
}

// Set is Trim specialized for UPDATE ... SET clauses: prepends SET and
// strips a trailing comma, matching SetSqlNode.
func Set(content Node) *Trim {
	return &Trim{
		Content:            content,
		Prefix:             "SET",
		SuffixesToOverride: []string{","},
	}
}

package ast

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/xiaoma778/mybatis-3/internal/ognl"
)

// Foreach iterates a collection or map expression, rendering Content once
// per element with Item (and Index) bound into scope, joining iterations
// with Separator and wrapping the whole thing with Open/Close. Grounded on
// ForEachSqlNode; the "__frch_" placeholder-renaming trick the Java version
// needs (so repeated #{item} references across iterations don't collide as
// *named* parameters) has no equivalent need here, since Placeholder
// resolves its value inline per Apply and ast.Context.Args is purely
// positional rather than name-keyed.
type Foreach struct {
	Collection string
	Item       string
	Index      string // optional; empty means don't bind an index variable
	Open       string
	Close      string
	Separator  string
	Content    Node
}

func (n *Foreach) Apply(ctx *Context) error {
	coll, ok, err := ognl.Resolve(n.Collection, ctx)
	if err != nil {
		return errEval("foreach", n.Collection, err)
	}
	if !ok {
		return fmt.Errorf("ast: foreach collection %q not found", n.Collection)
	}

	keys, values, err := iterate(coll)
	if err != nil {
		return errEval("foreach", n.Collection, err)
	}
	if len(values) == 0 {
		return nil
	}

	if n.Open != "" {
		ctx.AppendSQL(n.Open)
	}
	for i, v := range values {
		if i > 0 && n.Separator != "" {
			ctx.AppendSQL(n.Separator)
		}
		iter := NewContext(ctx)
		if n.Item != "" {
			iter.Bind(n.Item, v)
		}
		if n.Index != "" {
			iter.Bind(n.Index, keys[i])
		}
		if err := n.Content.Apply(iter); err != nil {
			return err
		}
		ctx.AppendSQL(iter.SQL())
		for _, a := range iter.Args() {
			ctx.AppendArg(a)
		}
	}
	if n.Close != "" {
		ctx.AppendSQL(n.Close)
	}
	return nil
}

// iterate coerces v into a slice, array or map into parallel key/value
// slices (Index/Item bindings), the Go stand-in for ExpressionEvaluator's
// evaluateIterable: a Map's key is the index value, a slice's position is.
func iterate(v any) (keys []any, values []any, err error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		keys = make([]any, n)
		values = make([]any, n)
		for i := 0; i < n; i++ {
			keys[i] = i
			values[i] = rv.Index(i).Interface()
		}
		return keys, values, nil
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			keys = append(keys, iter.Key().Interface())
			values = append(values, iter.Value().Interface())
		}
		return keys, values, nil
	default:
		return nil, nil, fmt.Errorf("value of kind %s is not iterable (%s)", rv.Kind(), strings.TrimSpace(fmt.Sprint(v)))
	}
}

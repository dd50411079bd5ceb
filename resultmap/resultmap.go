// Package resultmap materializes SQL rows into Go values according to a
// mapping.ResultMap: scalar columns, discriminated result maps, and nested
// associations/collections joined into the same row set, with dedup keyed
// by each result map's declared identifier columns. Grounded on
// org.apache.ibatis.executor.resultset.DefaultResultSetHandler (row-key
// dedup via CacheKey, discriminator dispatch, nested result map
// resolution) and on powerputtygo's sqlp/scanner.go and mapperp for the
// column-to-field reflection idiom this port already uses elsewhere.
package resultmap

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/xiaoma778/mybatis-3/cache"
	"github.com/xiaoma778/mybatis-3/internal/reflection"
	"github.com/xiaoma778/mybatis-3/mapping"
)

// Selector runs another mapped statement by ID, the hook a nested
// <association>/<collection> select="..." mapping needs to run a
// sub-query against the owning session rather than joining it into the
// current row set. session.Session satisfies this directly -- its Select
// method already has this exact shape.
type Selector interface {
	Select(ctx context.Context, statementID string, parameter any) ([]any, error)
}

// Registry holds every configured ResultMap by ID, resolving nested
// association/collection references and discriminator cases lazily so maps
// can be declared in any order, mirroring MyBatis's ResultMapResolver.
type Registry struct {
	byID map[string]*mapping.ResultMap
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*mapping.ResultMap{}}
}

func (r *Registry) Add(rm *mapping.ResultMap) {
	r.byID[rm.ID] = rm
}

func (r *Registry) Get(id string) (*mapping.ResultMap, error) {
	rm, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("resultmap: no result map registered with id %q", id)
	}
	return rm, nil
}

// Materializer scans a *sql.Rows through a root ResultMap, producing one
// pointer-to-struct value per distinct row key. Multiple physical rows that
// share the root's identifier columns are folded into a single logical
// result, with any <collection> mappings appended to across the group --
// the join-flattening behavior nested collections exist for.
type Materializer struct {
	registry *Registry
	rootID   string
	selector Selector
}

// NewMaterializer builds a Materializer with no nested-select support;
// a ResultMap whose mappings are all scalar or joined (NestedResultMapID)
// works fine with it, but one using NestedSelectID needs NewMaterializerWithSelector.
func NewMaterializer(registry *Registry, rootResultMapID string) *Materializer {
	return &Materializer{registry: registry, rootID: rootResultMapID}
}

// NewMaterializerWithSelector builds a Materializer that can run nested
// selects (<association>/<collection select="...">) through selector,
// the same way DefaultResultSetHandler reaches back into its Executor to
// run a nested query rather than joining it.
func NewMaterializerWithSelector(registry *Registry, rootResultMapID string, selector Selector) *Materializer {
	return &Materializer{registry: registry, rootID: rootResultMapID, selector: selector}
}

// Materialize consumes rows to completion and returns one value per
// distinct root row key, in first-seen order. ctx is only consulted for
// nested selects (NestedSelectID mappings); a ResultMap without any runs
// fine with context.Background() or the caller's own ctx either way.
func (m *Materializer) Materialize(ctx context.Context, rows *sql.Rows) ([]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("resultmap: reading columns: %w", err)
	}

	var order []string
	byKey := map[string]any{}
	seen := map[string]map[string]bool{} // rowKey -> collection property -> already appended

	for rows.Next() {
		raw, err := scanRawRow(rows, cols)
		if err != nil {
			return nil, err
		}
		rm, err := m.resolveDiscriminated(m.rootID, raw, cols, "")
		if err != nil {
			return nil, err
		}
		key, err := rowKey(rm, raw, cols, "")
		if err != nil {
			return nil, err
		}
		target, exists := byKey[key]
		if !exists {
			target = reflect.New(rm.Type).Interface()
			if err := m.apply(ctx, rm, target, raw, cols, "", seen, key); err != nil {
				return nil, err
			}
			byKey[key] = target
			order = append(order, key)
		} else {
			if err := m.apply(ctx, rm, target, raw, cols, "", seen, key); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]any, len(order))
	for i, k := range order {
		out[i] = byKey[k]
	}
	return out, nil
}

// resolveDiscriminated walks a ResultMap's Discriminator chain (if any) to
// find the concrete map that should handle this row, guarding against a
// cycle the way DefaultResultSetHandler's `pastDiscriminators` set does.
func (m *Materializer) resolveDiscriminated(id string, raw map[string]any, cols []string, prefix string) (*mapping.ResultMap, error) {
	visited := map[string]bool{}
	for {
		if visited[id] {
			return nil, fmt.Errorf("resultmap: discriminator cycle detected at %q", id)
		}
		visited[id] = true
		rm, err := m.registry.Get(id)
		if err != nil {
			return nil, err
		}
		if rm.Discriminator == nil {
			return rm, nil
		}
		v := raw[prefix+strings.ToLower(rm.Discriminator.Column)]
		next, ok := rm.Discriminator.Cases[fmt.Sprint(v)]
		if !ok {
			return rm, nil
		}
		id = next
	}
}

// rowKey builds a stable identity string from a ResultMap's IDColumns, or
// falls back to hashing every column's value when no ID columns were
// declared -- MyBatis does the same fallback in CacheKey construction for
// a resultMap with no <id> entries.
func rowKey(rm *mapping.ResultMap, raw map[string]any, cols []string, prefix string) (string, error) {
	k := cache.NewKey()
	k.Update(rm.ID)
	if len(rm.IDColumns) > 0 {
		for _, idc := range rm.IDColumns {
			k.Update(raw[prefix+strings.ToLower(idc.Column)])
		}
		return k.String(), nil
	}
	for _, c := range cols {
		if strings.HasPrefix(c, prefix) {
			k.Update(raw[c])
		}
	}
	return k.String(), nil
}

// apply writes every scalar and nested mapping from rm into target for one
// physical row, skipping a nested collection append if this row key
// already contributed to that property (so a fan-out join doesn't
// duplicate scalar-only rows already folded in).
func (m *Materializer) apply(ctx context.Context, rm *mapping.ResultMap, target any, raw map[string]any, cols []string, prefix string, seen map[string]map[string]bool, rowKeyStr string) error {
	meta := reflection.Of(target)
	for _, pm := range rm.PropertyMaps {
		if pm.NestedSelectID != "" {
			if err := m.applyNestedSelect(ctx, pm, meta, raw, prefix); err != nil {
				return err
			}
			continue
		}

		if pm.NestedResultMapID == "" {
			v, ok := raw[prefix+strings.ToLower(pm.Column)]
			if !ok {
				continue
			}
			if err := meta.Set(pm.Property, v); err != nil {
				return fmt.Errorf("resultmap: setting %q: %w", pm.Property, err)
			}
			continue
		}

		nestedPrefix := prefix + pm.ColumnPrefix
		nestedRM, err := m.resolveDiscriminated(pm.NestedResultMapID, raw, cols, nestedPrefix)
		if err != nil {
			return err
		}
		if allColumnsNull(nestedRM, raw, cols, nestedPrefix) {
			continue
		}
		if pm.Collection {
			marker := rowKeyStr + "\x1f" + pm.Property
			if seen[rowKeyStr] == nil {
				seen[rowKeyStr] = map[string]bool{}
			}
			nestedKey, _ := rowKey(nestedRM, raw, cols, nestedPrefix)
			marker += "\x1f" + nestedKey
			if seen[rowKeyStr][marker] {
				continue
			}
			seen[rowKeyStr][marker] = true

			elem := reflect.New(nestedRM.Type)
			if err := m.apply(ctx, nestedRM, elem.Interface(), raw, cols, nestedPrefix, seen, nestedKey); err != nil {
				return err
			}
			if err := appendToSlice(meta, pm.Property, elem.Interface()); err != nil {
				return err
			}
			continue
		}

		nested := reflect.New(nestedRM.Type)
		if err := m.apply(ctx, nestedRM, nested.Interface(), raw, cols, nestedPrefix, seen, rowKeyStr); err != nil {
			return err
		}
		if err := meta.Set(pm.Property, nested.Interface()); err != nil {
			return fmt.Errorf("resultmap: setting nested %q: %w", pm.Property, err)
		}
	}
	return nil
}

// applyNestedSelect resolves a ResultMapping whose NestedSelectID is set:
// a nested select runs another mapped statement with the named column's
// value as its parameter instead of reading the join row, MyBatis's
// association/collection select="..." attribute. NestedSelectLazy defers
// that run behind a *Lazy[any] rather than running it inline, the
// explicit-call substitute for MyBatis's lazy-loading proxy.
func (m *Materializer) applyNestedSelect(ctx context.Context, pm mapping.ResultMapping, meta *reflection.MetaObject, raw map[string]any, prefix string) error {
	if m.selector == nil {
		return fmt.Errorf("resultmap: %q has NestedSelectID %q but this Materializer has no Selector", pm.Property, pm.NestedSelectID)
	}
	param := raw[prefix+strings.ToLower(pm.Column)]
	if param == nil {
		return nil
	}

	load := func() (any, error) {
		rows, err := m.selector.Select(ctx, pm.NestedSelectID, param)
		if err != nil {
			return nil, err
		}
		if pm.Collection {
			return rows, nil
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}

	if pm.NestedSelectLazy {
		return meta.Set(pm.Property, NewLazy(load))
	}

	v, err := load()
	if err != nil {
		return fmt.Errorf("resultmap: nested select %q for %q: %w", pm.NestedSelectID, pm.Property, err)
	}
	if pm.Collection {
		rows, _ := v.([]any)
		for _, elem := range rows {
			if err := appendToSlice(meta, pm.Property, elem); err != nil {
				return err
			}
		}
		return nil
	}
	if v == nil {
		return nil
	}
	return meta.Set(pm.Property, v)
}

func allColumnsNull(rm *mapping.ResultMap, raw map[string]any, cols []string, prefix string) bool {
	any_ := false
	for _, c := range cols {
		if strings.HasPrefix(c, prefix) && raw[c] != nil {
			any_ = true
		}
	}
	return !any_
}

func appendToSlice(meta *reflection.MetaObject, property string, elem any) error {
	cur, err := meta.Get(property)
	if err != nil {
		return err
	}
	slice := reflect.ValueOf(cur)
	elemPtr := reflect.ValueOf(elem)
	if !slice.IsValid() || slice.IsNil() {
		sliceType := reflect.SliceOf(elemPtr.Type())
		slice = reflect.MakeSlice(sliceType, 0, 1)
	}
	slice = reflect.Append(slice, elemPtr)
	return meta.Set(property, slice.Interface())
}

func scanRawRow(rows *sql.Rows, cols []string) (map[string]any, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("resultmap: scanning row: %w", err)
	}
	out := make(map[string]any, len(cols))
	for i, c := range cols {
		if b, ok := values[i].([]byte); ok {
			out[strings.ToLower(c)] = string(b)
		} else {
			out[strings.ToLower(c)] = values[i]
		}
	}
	return out, nil
}

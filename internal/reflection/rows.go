package reflection

// Bulk row-to-struct scanning, as distinct from the single-property
// MetaObject access the rest of this package provides: a result set can
// have dozens of columns per row, so this half precomputes a
// column-to-field plan once per destination type and reuses it across
// every row, rather than resolving a property path per column per row.
//
// Adapted from powerputtygo's sqlp/internal/reflectp package almost
// unchanged in algorithm (struct-tag-driven field discovery, embedded
// struct promotion, nested "child_id"-style column prefixes, post-scan
// nil-ing of untouched pointer substructs) -- the column struct tag is
// renamed from "sqlp" to "column" to match this module's own vocabulary,
// and a stray debug log line from the original was dropped.

import (
	"cmp"
	"database/sql"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"
)

// RowField describes one destination struct field: which result column
// feeds it, and (if it's itself a struct) the RowFields needed to recurse
// into it for nested/embedded columns.
type RowField struct {
	Column string

	Tag        bool
	Index      []int
	DirectType reflect.Type
	Type       reflect.Type

	fields *RowFields
}

func (f *RowField) Fields() *RowFields {
	if f.fields != nil {
		return f.fields
	}
	if f.DirectType.Kind() == reflect.Struct {
		fields, _ := RowFieldsFor(f.DirectType) // nolint:errcheck pre-touched during discovery
		f.fields = fields
		return fields
	}
	return nil
}

// RowFields is the column-to-field plan for one struct type.
type RowFields struct {
	ByColumnName map[string]*RowField
	Type         reflect.Type
}

var rowFieldsCache sync.Map // map[reflect.Type]*RowFields

// RowFieldsFor returns (and caches) the column plan for struct type t.
func RowFieldsFor(t reflect.Type) (*RowFields, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("reflection: given %v, expected struct", t.Kind())
	}
	if f, ok := rowFieldsCache.Load(t); ok {
		return f.(*RowFields), nil
	}
	f, err := newRowFields(t)
	if err != nil {
		return nil, err
	}
	cached, _ := rowFieldsCache.LoadOrStore(t, f)
	return cached.(*RowFields), nil
}

func newRowFields(t reflect.Type, _visited ...map[reflect.Type]bool) (*RowFields, error) {
	visited := map[reflect.Type]bool{}
	if len(_visited) > 0 {
		visited = _visited[0]
	}
	visited[t] = true
	byColumnName := make(map[string]*RowField, t.NumField())
	add := func(column string, field *RowField) bool {
		if _, ok := byColumnName[column]; ok {
			return true
		}
		byColumnName[column] = field
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.Anonymous {
			et := sf.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if !sf.IsExported() && et.Kind() != reflect.Struct {
				continue
			}
		} else if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("column")
		if tag == "-" {
			continue
		}
		column, opts := parseRowTag(tag)
		if !isValidRowTag(column) {
			column = ""
		}

		ft := sf.Type
		if ft.Name() == "" && ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		tagged := column != ""
		if column == "" {
			column = sf.Name
		}

		promote := (opts.Contains("promote") || (sf.Anonymous && !tagged)) && ft.Kind() == reflect.Struct

		field := RowField{
			Column:     column,
			Tag:        tagged,
			Index:      []int{i},
			DirectType: ft,
			Type:       sf.Type,
		}
		if _, ok := visited[ft]; ft.Kind() == reflect.Struct && !ok {
			embedded, err := newRowFields(ft, visited)
			if err != nil {
				return nil, fmt.Errorf("reflection: processing sub struct %s: %w", sf.Name, err)
			}
			if promote {
				for k, f := range embedded.ByColumnName {
					col := k
					f.Index = append([]int{i}, f.Index...)
					if tagged {
						col = column + "_" + k
					}
					if add(col, f) {
						return nil, fmt.Errorf("reflection: duplicate column name %s in embedded struct %s", k, sf.Name)
					}
				}
			}
		}

		if !promote {
			if add(column, &field) {
				return nil, fmt.Errorf("reflection: duplicate column name %s", column)
			}
		}
	}

	return &RowFields{Type: t, ByColumnName: byColumnName}, nil
}

func (f *RowFields) Rows(rows *sql.Rows) (*RowScanner, error) {
	return NewRowScanner(f, rows)
}

// traverse walks cols against the field plan, invoking cb for both leaf
// columns and the intermediate struct fields a nested "prefix_column"
// passes through, so the caller can pre-allocate pointer substructs before
// it knows whether any of their leaf columns actually came back non-null.
func (f *RowFields) traverse(cols []string, cb func(f *RowField, path []int, isColumn bool), _path ...[]int) error {
	path := []int{}
	if len(_path) > 0 {
		path = _path[0]
	}

	for i := range cols {
		field, ok := f.ByColumnName[cols[i]]
		if ok {
			cb(field, append(path[:], field.Index...), true)
			continue
		}
		root, rest, _ := strings.Cut(cols[i], "_")
		field, ok = f.ByColumnName[root]
		if !ok || field.Fields() == nil {
			cb(nil, nil, true)
			continue
		}
		path2 := append(path[:], field.Index...)
		if err := field.Fields().traverse([]string{rest}, cb, path2); err != nil {
			return err
		}
		cb(field, path2, false)
	}
	return nil
}

type rowTargeter func(strct reflect.Value) (fieldPtr any)

// RowScanner scans *sql.Rows into a precomputed struct layout, one value
// per Scan call.
type RowScanner struct {
	*sql.Rows
	fields        *RowFields
	targets       []any
	targeters     []rowTargeter
	zeroNilFields [][]int
}

func NewRowScanner(f *RowFields, rows *sql.Rows) (*RowScanner, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reflection: getting columns: %w", err)
	}
	sr := &RowScanner{
		Rows:      rows,
		fields:    f,
		targets:   make([]any, len(cols)),
		targeters: make([]rowTargeter, len(cols)),
	}

	zeroNilsByPath := map[string][]int{}
	i := 0
	err = f.traverse(cols, func(field *RowField, path []int, isColumn bool) {
		if !isColumn {
			if field.Type.Kind() == reflect.Pointer {
				zeroNilsByPath[strings.Join(strings.Fields(fmt.Sprint(path)), ",")] = path
			}
			return
		}
		switch {
		case field == nil:
			sr.targeters[i] = func(reflect.Value) any { return new(any) }
		case len(path) == 1:
			sr.targeters[i] = func(v reflect.Value) any {
				return reflect.Indirect(v).Field(path[0]).Addr().Interface()
			}
		default:
			sr.targeters[i] = func(v reflect.Value) any {
				for j, fieldI := range path {
					v = reflect.Indirect(v).Field(fieldI)
					if j == len(path)-1 {
						continue
					}
					if v.Kind() == reflect.Ptr && v.IsNil() {
						v.Set(reflect.New(derefRowType(v.Type())))
					}
					if v.Kind() == reflect.Map && v.IsNil() {
						v.Set(reflect.MakeMap(v.Type()))
					}
				}
				return v.Addr().Interface()
			}
		}
		i++
	})

	for _, path := range zeroNilsByPath {
		sr.zeroNilFields = append(sr.zeroNilFields, path)
	}
	slices.SortFunc(sr.zeroNilFields, func(a, b []int) int {
		return cmp.Compare(len(b), len(a))
	})

	return sr, err
}

// Scan scans the current row into val (a struct value, addressable), or
// allocates a fresh one of the scanner's struct type if val is omitted.
func (sr *RowScanner) Scan(_val ...reflect.Value) (reflect.Value, error) {
	var val reflect.Value
	if len(_val) > 0 {
		val = _val[0]
	} else {
		val = reflect.New(sr.fields.Type)
	}

	for i := range sr.targeters {
		sr.targets[i] = sr.targeters[i](val)
	}
	if err := sr.Rows.Scan(sr.targets...); err != nil {
		return reflect.Value{}, fmt.Errorf("reflection: scanning row: %w", err)
	}

	for _, path := range sr.zeroNilFields {
		v := val
		for _, i := range path {
			if !reflect.Indirect(v).IsValid() {
				return reflect.Value{}, fmt.Errorf("reflection: nil-ing path %v", path)
			}
			v = reflect.Indirect(v).Field(i)
		}
		elem := v.Elem()
		if elem.IsValid() && elem.IsZero() {
			v.Set(reflect.Zero(v.Type()))
		}
	}

	return val, nil
}

type rowTagOptions string

func parseRowTag(tag string) (string, rowTagOptions) {
	tag, opt, _ := strings.Cut(tag, ",")
	return tag, rowTagOptions(opt)
}

func (o rowTagOptions) Contains(name string) bool {
	s := string(o)
	for s != "" {
		var n string
		n, s, _ = strings.Cut(s, ",")
		if n == name {
			return true
		}
	}
	return false
}

func isValidRowTag(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case strings.ContainsRune("!#$%&()*+-./:;<=>?@[]^_{|}~ ", c):
		case !unicode.IsLetter(c) && !unicode.IsDigit(c):
			return false
		}
	}
	return true
}

func derefRowType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

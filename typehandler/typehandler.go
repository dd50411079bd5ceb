// Package typehandler converts between a driver.Value read off a
// database/sql row and the host Go type a struct field or map entry
// expects, the same role org.apache.ibatis.type.TypeHandler plays between
// JDBC types and Java types. Go's database/sql already does most numeric/
// string/time conversions itself; this registry exists for the cases it
// doesn't -- nullable wrapper types, custom scalars, and enums stored as
// strings or ints.
package typehandler

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"
)

// Handler converts a raw column value into dst's target type on read, and
// converts a Go value into a driver.Value on write.
type Handler interface {
	FromDB(src any) (any, error)
	ToDB(v any) (driver.Value, error)
}

// Registry maps a Go type to the Handler responsible for it, equivalent to
// org.apache.ibatis.type.TypeHandlerRegistry, keyed on reflect.Type instead
// of a Class<?>/JdbcType pair since this port infers direction from the
// destination struct field alone.
type Registry struct {
	mu       sync.RWMutex
	byType   map[reflect.Type]Handler
}

func NewRegistry() *Registry {
	r := &Registry{byType: map[reflect.Type]Handler{}}
	r.Register(reflect.TypeOf(""), stringHandler{})
	return r
}

func (r *Registry) Register(t reflect.Type, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[t] = h
}

func (r *Registry) Lookup(t reflect.Type) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byType[t]
	return h, ok
}

// stringHandler is the trivial identity handler registered by default,
// mostly so Registry is never empty and callers can rely on Lookup
// succeeding for the common string case without special-casing it.
type stringHandler struct{}

func (stringHandler) FromDB(src any) (any, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return fmt.Sprint(v), nil
	}
}

func (stringHandler) ToDB(v any) (driver.Value, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("typehandler: expected string, got %T", v)
	}
	return s, nil
}

// EnumHandler stores a Go enum (any type whose underlying type is string;
// integer-based enums are not supported) as its underlying string,
// converting back to the enum type via the
// caller-supplied constructor. Grounded on
// org.apache.ibatis.type.EnumTypeHandler / EnumOrdinalTypeHandler, unified
// into one handler parameterized by direction since Go enums don't carry
// a name() the way Java enums do.
type EnumHandler[T ~string] struct {
	Construct func(string) T
}

func (h EnumHandler[T]) FromDB(src any) (any, error) {
	s, err := stringHandler{}.FromDB(src)
	if err != nil {
		return nil, err
	}
	return h.Construct(s.(string)), nil
}

func (h EnumHandler[T]) ToDB(v any) (driver.Value, error) {
	t, ok := v.(T)
	if !ok {
		return nil, fmt.Errorf("typehandler: expected %T, got %T", t, v)
	}
	return string(t), nil
}

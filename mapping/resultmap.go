package mapping

import "reflect"

// ResultMap describes how to materialize one row (or row group, for
// collection/association mappings) into a Go value. Equivalent to
// org.apache.ibatis.mapping.ResultMap; the row-walking that consumes it
// lives in package resultmap so this package stays metadata-only.
type ResultMap struct {
	ID            string
	Type          reflect.Type
	IDColumns     []ResultMapping // columns used to build a row's dedup key
	PropertyMaps  []ResultMapping
	Discriminator *Discriminator
}

// ResultMapping is one column-to-property wire, or a nested association/
// collection pointing at another ResultMap (by ID, resolved lazily by the
// registry so maps can reference each other regardless of declaration
// order, same as MyBatis's deferred ResultMapResolver).
type ResultMapping struct {
	Property string
	Column   string

	// NestedResultMapID, when set, means this property is populated from a
	// join row rather than a plain scalar column (an <association>/
	// <collection> in MyBatis terms).
	NestedResultMapID string
	// Collection is true when NestedResultMapID should be appended to a
	// slice-valued property rather than assigned directly.
	Collection bool

	// ColumnPrefix is applied to the nested map's own column lookups, so
	// the same nested ResultMap can be reused under different join aliases.
	ColumnPrefix string

	// NestedSelectID, when set, means this property is populated by running
	// another mapped statement (keyed by column value) rather than reading
	// columns from the current row set at all -- MyBatis's nested select,
	// the mechanism also used for lazy loading.
	NestedSelectID string
	NestedSelectLazy bool
}

// Discriminator picks a ResultMap based on a column's value, chaining to
// further discriminators if the chosen case itself discriminates.
// Equivalent to org.apache.ibatis.mapping.Discriminator.
type Discriminator struct {
	Column string
	Cases  map[string]string // stringified column value -> ResultMap ID
}

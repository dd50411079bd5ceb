package mapping

// StatementType is the SQL command kind, used by the executor to decide
// whether to call Query or Exec and whether the L1/L2 caches apply.
// Equivalent to org.apache.ibatis.mapping.SqlCommandType.
type StatementType int

const (
	Unknown StatementType = iota
	Select
	Insert
	Update
	Delete
)

func (t StatementType) String() string {
	switch t {
	case Select:
		return "SELECT"
	case Insert:
		return "INSERT"
	case Update:
		return "UPDATE"
	case Delete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// MappedStatement is a fully-resolved mapper statement: its SqlSource, the
// ResultMap(s) it produces rows into, and the cache/flush policy that
// governs it. Equivalent to org.apache.ibatis.mapping.MappedStatement,
// trimmed to the fields this port's executor and cache layers consult.
type MappedStatement struct {
	ID            string
	Type          StatementType
	SqlSource     SqlSource
	ResultMapID   string
	FlushCache    bool // clears the L2 cache on Update when true; not set automatically for writes
	UseCache      bool // lets Query consult the L1/L2 caches when true; not set automatically for selects
	FetchSize     int
	Timeout       int // seconds; 0 means driver default
}

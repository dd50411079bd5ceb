// Package driver adapts database/sql's driver-agnostic Conn/DB behind a
// small dialect abstraction covering the one thing MyBatis' JDBC drivers
// vary on that this port cares about: placeholder syntax. Grounded on
// powerputtygo's sqlp/pkg/query.Placeholderer, generalized from a bare
// function into a named Dialect so package config can select one by driver
// name and package session can rewrite a statement's "?" placeholders into
// the dialect's actual syntax right before executing it.
//
// The registered dialects correspond to the SQL driver packages carried in
// go.mod: mattn/go-sqlite3, go-sql-driver/mysql, and lib/pq.
package driver

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Placeholderer renders the i'th (zero-based) bind parameter's placeholder
// text for a given SQL dialect.
type Placeholderer func(i int) string

// Dialect names a SQL driver and the placeholder style, quoting, and
// driver name database/sql needs to talk to it.
type Dialect struct {
	Name          string
	DriverName    string
	Placeholder   Placeholderer
	IdentifierQuote string
}

var (
	SQLite = Dialect{
		Name:            "sqlite",
		DriverName:      "sqlite3",
		Placeholder:     func(int) string { return "?" },
		IdentifierQuote: `"`,
	}
	MySQL = Dialect{
		Name:            "mysql",
		DriverName:      "mysql",
		Placeholder:     func(int) string { return "?" },
		IdentifierQuote: "`",
	}
	Postgres = Dialect{
		Name:            "postgres",
		DriverName:      "postgres",
		Placeholder:     func(i int) string { return fmt.Sprintf("$%d", i+1) },
		IdentifierQuote: `"`,
	}
)

var byName = map[string]Dialect{
	SQLite.Name:   SQLite,
	MySQL.Name:    MySQL,
	Postgres.Name: Postgres,
}

// Lookup finds a registered dialect by name (config-file friendly), e.g.
// "sqlite", "mysql", "postgres".
func Lookup(name string) (Dialect, error) {
	d, ok := byName[name]
	if !ok {
		return Dialect{}, fmt.Errorf("driver: unknown dialect %q", name)
	}
	return d, nil
}

// Rewrite replaces each generic "?" placeholder SqlSource produces, in
// order, with this dialect's actual placeholder syntax. SQLite/MySQL are
// no-ops since "?" is already their native syntax; Postgres rewrites to
// "$1", "$2", ...
func (d Dialect) Rewrite(sql string) string {
	if d.Placeholder == nil {
		return sql
	}
	var b strings.Builder
	i := 0
	for _, r := range sql {
		if r == '?' {
			b.WriteString(d.Placeholder(i))
			i++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

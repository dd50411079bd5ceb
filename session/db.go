// Package session provides the "SqlSession" entry point: opening a
// connection, running statements through an executor, and scoping
// transactions via context rather than an explicit Session object threaded
// through every call. Grounded directly on powerputtygo's sqlp/db.go,
// whose DB.RunInTx/context.WithValue pattern already gives Go the
// equivalent of openSession()/commit()/close() without needing a
// try-with-resources analogue.
package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xiaoma778/mybatis-3/driver"
)

// DB wraps *sql.DB with dialect awareness and context-scoped transactions.
type DB struct {
	*sql.DB
	Dialect driver.Dialect
}

// Open opens a connection using the driver/placeholder style named by
// dialectName ("sqlite", "mysql", or "postgres").
func Open(dialectName, dataSourceName string) (*DB, error) {
	d, err := driver.Lookup(dialectName)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(d.DriverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("session: opening %s: %w", dialectName, err)
	}
	return &DB{DB: conn, Dialect: d}, nil
}

type contextKey string

const txKey contextKey = "session.tx"

// Queryer is the connection-shaped subset *sql.DB and *sql.Tx share.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn returns the in-flight transaction from ctx if RunInTx started one,
// otherwise the bare *sql.DB connection pool.
func (db *DB) Conn(ctx context.Context) Queryer {
	if tx, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

// RunInTx runs fn inside a transaction, reusing one already open on ctx
// (so nested calls compose into a single transaction rather than
// attempting a nested BEGIN) and committing on success or rolling back on
// error or panic.
func (db *DB) RunInTx(ctx context.Context, fn func(context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("session: beginning transaction: %w", err)
	}
	ctx = context.WithValue(ctx, txKey, tx)

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("session: rolling back after %w: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Package dummydb is an in-memory storage backend used by tests and local
// hacking. It honors the same repository contracts as the SQL backend but
// ignores transaction executors: every call commits immediately.
package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/trezcool/tathmini/core"
	"github.com/trezcool/tathmini/core/person"
	"github.com/trezcool/tathmini/core/review"
)

type (
	DB struct {
		person     *personTable
		period     *periodTable
		credential *credentialTable
		obligation *obligationTable
		response   *responseTable
	}

	personTable struct {
		sync.RWMutex
		table map[string]*person.Person
	}

	periodTable struct {
		sync.RWMutex
		table map[string]*review.Period
	}

	credentialTable struct {
		sync.RWMutex
		table map[string]*review.Credential
	}

	obligationTable struct {
		sync.RWMutex
		table map[string]*review.Obligation
	}

	responseTable struct {
		sync.RWMutex
		table map[string]*review.Response
	}
)

var _ core.DB = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		person:     &personTable{table: make(map[string]*person.Person)},
		period:     &periodTable{table: make(map[string]*review.Period)},
		credential: &credentialTable{table: make(map[string]*review.Credential)},
		obligation: &obligationTable{table: make(map[string]*review.Obligation)},
		response:   &responseTable{table: make(map[string]*review.Response)},
	}
	return db, nil
}

// BeginTx hands out a no-op transactor; writes here are atomic per call.
func (db *DB) BeginTx(context.Context, *sql.TxOptions) (core.DBTransactor, error) {
	return nopTx{}, nil
}

type nopTx struct{}

func (nopTx) Exec(string, ...interface{}) (sql.Result, error) { return nil, nil }
func (nopTx) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (nopTx) Query(string, ...interface{}) (*sql.Rows, error) { return nil, nil }
func (nopTx) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (nopTx) QueryRow(string, ...interface{}) *sql.Row                     { return nil }
func (nopTx) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (nopTx) Commit() error                                                { return nil }
func (nopTx) Rollback() error                                              { return nil }

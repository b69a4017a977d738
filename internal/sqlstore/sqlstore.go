// Package sqlstore is the reference store.Store driver of spec.md §4.G/§6: it
// persists every model instance as a JSON blob keyed by "@id", following the
// teacher's db.Connect dual local-file/Turso dialector switch and
// models.Stage's datatypes.JSON column, and follows the teacher's
// core.TransactionManager discipline of allowing only one in-flight
// transaction at a time.
package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	libsql "github.com/tursodatabase/libsql-client-go/libsql"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oxhq/mesh/store"
)

// Store is a gorm-backed store.Store driver over a single "mesh_records"
// table. Execute serialises transactions behind mu: the teacher's
// TransactionManager refuses a second BeginTransaction while one is already
// open, and sqlstore carries the same single-in-flight-transaction
// discipline rather than relying on sqlite's own locking to surface it.
type Store struct {
	db *gorm.DB
	mu sync.Mutex
}

// Open connects to dsn and migrates the records table. A dsn starting with
// "http://", "https://" or "libsql" is treated as a remote Turso/libsql
// database, authenticated via MESH_LIBSQL_AUTH_TOKEN if set; anything else is
// a local sqlite file path, whose parent directory is created if missing.
func Open(dsn string, debug bool) (*Store, error) {
	if !isURL(dsn) && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("sqlstore: create database directory: %w", err)
			}
		}
	}

	config := &gorm.Config{}
	if debug {
		config.Logger = logger.Default.LogMode(logger.Info)
	}

	var (
		dialector gorm.Dialector
		conn      *sql.DB
	)
	if isURL(dsn) {
		var (
			connector driver.Connector
			err       error
		)
		if token := os.Getenv("MESH_LIBSQL_AUTH_TOKEN"); token != "" {
			connector, err = libsql.NewConnector(dsn, libsql.WithAuthToken(token))
		} else {
			connector, err = libsql.NewConnector(dsn)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlstore: create libsql connector: %w", err)
		}
		conn = sql.OpenDB(connector)
		dialector = sqlite.New(sqlite.Config{DriverName: "libsql", Conn: conn, DSN: dsn})
	} else {
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}

	if dsn == ":memory:" {
		// An in-memory database is private to a single connection; cap the
		// pool at one so every query in this Store lands on the same database
		// instead of silently starting a fresh empty one.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func isURL(dsn string) bool {
	return strings.HasPrefix(dsn, "http://") || strings.HasPrefix(dsn, "https://") || strings.HasPrefix(dsn, "libsql")
}

// asStoreError wraps a driver-level error under store.Backend unless it is
// already a *store.Error.
func asStoreError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*store.Error); ok {
		return err
	}
	return store.WrapError(store.Backend, "sqlite backend failure", err)
}

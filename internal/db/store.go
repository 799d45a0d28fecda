package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"

	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/logging"
)

// Store is the transactional record store. Writes are serialized through a single
// writer; reads run concurrently against committed state.
type Store struct {
	db *sql.DB

	writeMu sync.Mutex
	hub     *hub

	// Prepared statement cache for read queries, keyed by query text.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewStore creates a Store on top of an opened, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db.DB, hub: newHub()}
}

// Tx is a unit of work. Write methods are only allowed inside Store.Transaction.
type Tx struct {
	tx       *sql.Tx
	store    *Store
	readOnly bool
	touched  map[string]struct{}

	// queries run unprepared because they were not cached yet; prepared once
	// the transaction has released its connection.
	uncached []string
}

func (tx *Tx) writable() error {
	if tx.readOnly {
		return errors.New(errors.ErrInternal, "write attempted in a read-only transaction")
	}
	return nil
}

func (tx *Tx) touch(table string) {
	tx.touched[table] = struct{}{}
}

func (tx *Tx) tables() []string {
	out := make([]string, 0, len(tx.touched))
	for t := range tx.touched {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Query runs a read query inside the transaction, reusing cached prepared statements.
// A query not cached yet runs directly on the transaction's connection; the pool is
// never asked for a second connection while the transaction holds one.
func (tx *Tx) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if stmt, ok := tx.store.cachedStmt(query); ok {
		rows, err = tx.tx.StmtContext(ctx, stmt).QueryContext(ctx, args...)
	} else {
		rows, err = tx.tx.QueryContext(ctx, query, args...)
		tx.uncached = append(tx.uncached, query)
	}
	if err != nil {
		return nil, classify("query", err)
	}
	return rows, nil
}

// QueryRow runs a single-row read query inside the transaction.
func (tx *Tx) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return tx.tx.QueryRowContext(ctx, query, args...)
}

func (s *Store) cachedStmt(query string) (*sql.Stmt, bool) {
	stmt, ok := s.stmtCache.Load(query)
	if !ok {
		return nil, false
	}
	return stmt.(*sql.Stmt), true
}

// PrepareStmt gets or creates a prepared statement from cache. It takes a pool
// connection, so it must not be called while a transaction of this goroutine is open.
func (s *Store) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := s.cachedStmt(query); ok {
		return stmt, nil
	}

	stmt, err := s.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, classify("prepare statement", err)
	}

	// Another goroutine may have prepared the same query meanwhile; keep theirs.
	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// warm caches the queries a finished transaction ran unprepared.
func (s *Store) warm(ctx context.Context, tx *Tx) {
	for _, query := range tx.uncached {
		if _, err := s.PrepareStmt(ctx, query); err != nil {
			logging.Debug("statement not cached", map[string]interface{}{"error": err.Error()})
			return
		}
	}
}

// Transaction runs fn as one atomic unit. If fn returns an error or panics, every
// write in it is rolled back and no change notification is sent. After a successful
// commit each touched table notifies its subscribers once.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	tx := &Tx{tx: sqlTx, store: s, touched: map[string]struct{}{}}
	defer s.warm(ctx, tx)

	committed := false
	defer func() {
		if !committed {
			if rbErr := sqlTx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				logging.Warn("rollback failed", map[string]interface{}{"error": rbErr.Error()})
			}
		}
	}()

	if err := fn(tx); err != nil {
		logging.Debug("transaction rolled back", map[string]interface{}{
			"tables": tx.tables(),
			"error":  err.Error(),
		})
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	committed = true

	if tables := tx.tables(); len(tables) > 0 {
		s.hub.publish(tables)
	}
	return nil
}

// View runs fn in a read transaction so every query in it sees one snapshot.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin read transaction", err)
	}
	tx := &Tx{tx: sqlTx, store: s, readOnly: true, touched: map[string]struct{}{}}
	defer s.warm(ctx, tx)
	defer sqlTx.Rollback()

	return fn(tx)
}

// Insert runs a single-record insert in its own transaction.
func (s *Store) Insert(ctx context.Context, t Table, row Row, policy ConflictPolicy) (int64, error) {
	var id int64
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		id, err = tx.Insert(ctx, t, row, policy)
		return err
	})
	return id, err
}

// Update runs a single-record update in its own transaction.
func (s *Store) Update(ctx context.Context, t Table, row Row) error {
	return s.Transaction(ctx, func(tx *Tx) error {
		return tx.Update(ctx, t, row)
	})
}

// Delete runs a delete in its own transaction.
func (s *Store) Delete(ctx context.Context, t Table, match Row) (int64, error) {
	var n int64
	err := s.Transaction(ctx, func(tx *Tx) error {
		var err error
		n, err = tx.Delete(ctx, t, match)
		return err
	})
	return n, err
}

// Subscribe returns a subscription that fires after every committed write touching
// any of tables (every table when none are given).
func (s *Store) Subscribe(tables ...string) *Subscription {
	return s.hub.subscribe(tables)
}

// Close releases cached statements and closes every open subscription.
// The underlying DB is owned by the caller.
func (s *Store) Close() error {
	s.hub.close()

	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close statement: %w", err)
		}
		s.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kimhsiao/memonotes/internal/errors"
)

// Table describes a keyed table the engine can write to.
type Table struct {
	Name string
	// Key lists the primary key columns.
	Key []string
	// AutoKey means Key is a single INTEGER column assigned by the engine on insert.
	AutoKey bool
}

var (
	NotesTable = Table{Name: "notes", Key: []string{"id"}, AutoKey: true}
	TagsTable  = Table{Name: "tags", Key: []string{"id"}, AutoKey: true}
	LinksTable = Table{Name: "note_tag_link", Key: []string{"note_id", "tag_id"}}
)

// Row maps column names to values.
type Row map[string]interface{}

// ConflictPolicy decides what an insert does when the key already exists.
type ConflictPolicy int

const (
	// ConflictAbort fails the insert with CONSTRAINT_VIOLATION.
	ConflictAbort ConflictPolicy = iota
	// ConflictIgnore keeps the existing record and reports no error.
	ConflictIgnore
	// ConflictReplace overwrites the existing record.
	ConflictReplace
)

func (p ConflictPolicy) verb() string {
	switch p {
	case ConflictIgnore:
		return "INSERT OR IGNORE"
	case ConflictReplace:
		return "INSERT OR REPLACE"
	default:
		return "INSERT"
	}
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
var orderRe = regexp.MustCompile(`^[a-z_][a-z0-9_.]*( (?i:asc|desc))?$`)

func checkIdent(names ...string) error {
	for _, n := range names {
		if !identRe.MatchString(n) {
			return errors.Newf(errors.ErrInvalid, "invalid identifier %q", n)
		}
	}
	return nil
}

func checkOrder(orderBy string) error {
	if orderBy == "" {
		return nil
	}
	for _, part := range strings.Split(orderBy, ",") {
		if !orderRe.MatchString(strings.TrimSpace(part)) {
			return errors.Newf(errors.ErrInvalid, "invalid ordering %q", orderBy)
		}
	}
	return nil
}

// columns returns the row's column names in a stable order.
func (r Row) columns() []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// where renders "a = ? AND b = ?" for the row's columns.
func (r Row) where() (string, []interface{}) {
	cols := r.columns()
	clauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, c := range cols {
		clauses = append(clauses, c+" = ?")
		args = append(args, r[c])
	}
	return strings.Join(clauses, " AND "), args
}

func isZeroKey(v interface{}) bool {
	switch k := v.(type) {
	case nil:
		return true
	case int64:
		return k == 0
	case int:
		return k == 0
	case int32:
		return k == 0
	}
	return false
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Insert adds row to t and returns the record's id for AutoKey tables.
// Under ConflictIgnore an ignored duplicate returns (0, nil).
func (tx *Tx) Insert(ctx context.Context, t Table, row Row, policy ConflictPolicy) (int64, error) {
	if err := tx.writable(); err != nil {
		return 0, err
	}

	values := Row{}
	for c, v := range row {
		values[c] = v
	}
	var explicitID int64
	if t.AutoKey {
		key := t.Key[0]
		if isZeroKey(values[key]) {
			delete(values, key)
		} else if id, ok := values[key].(int64); ok {
			if id < 0 {
				return 0, errors.Newf(errors.ErrInvalid, "%s: negative id %d", t.Name, id)
			}
			explicitID = id
		}
	}

	cols := values.columns()
	if err := checkIdent(append([]string{t.Name}, cols...)...); err != nil {
		return 0, err
	}

	var query string
	args := make([]interface{}, 0, len(cols))
	if len(cols) == 0 {
		query = fmt.Sprintf("%s INTO %s DEFAULT VALUES", policy.verb(), t.Name)
	} else {
		for _, c := range cols {
			args = append(args, values[c])
		}
		query = fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
			policy.verb(), t.Name, strings.Join(cols, ", "), placeholders(len(cols)))
	}

	res, err := tx.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("insert into "+t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("insert into "+t.Name, err)
	}
	if n == 0 {
		return 0, nil
	}
	tx.touch(t.Name)

	if !t.AutoKey {
		return 0, nil
	}
	if explicitID != 0 {
		return explicitID, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify("insert into "+t.Name, err)
	}
	return id, nil
}

// Update replaces the non-key columns of the record whose key matches row.
// It fails with NOT_FOUND when no such record exists.
func (tx *Tx) Update(ctx context.Context, t Table, row Row) error {
	if err := tx.writable(); err != nil {
		return err
	}

	key := Row{}
	set := Row{}
	for c, v := range row {
		set[c] = v
	}
	for _, k := range t.Key {
		v, ok := row[k]
		if !ok {
			return errors.Newf(errors.ErrInvalid, "%s: update without key column %s", t.Name, k)
		}
		key[k] = v
		delete(set, k)
	}
	if len(set) == 0 {
		return errors.Newf(errors.ErrInvalid, "%s: nothing to update", t.Name)
	}

	setCols := set.columns()
	if err := checkIdent(append(append([]string{t.Name}, setCols...), t.Key...)...); err != nil {
		return err
	}

	assignments := make([]string, 0, len(setCols))
	args := make([]interface{}, 0, len(row))
	for _, c := range setCols {
		assignments = append(assignments, c+" = ?")
		args = append(args, set[c])
	}
	where, keyArgs := key.where()
	args = append(args, keyArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t.Name, strings.Join(assignments, ", "), where)
	res, err := tx.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return classify("update "+t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update "+t.Name, err)
	}
	if n == 0 {
		return errors.Newf(errors.ErrNotFound, "%s: no record with key %v", t.Name, keyArgs)
	}
	tx.touch(t.Name)
	return nil
}

// Delete removes every record matching all columns of match (all records when match is empty)
// and returns how many were removed. Removing nothing is not an error.
func (tx *Tx) Delete(ctx context.Context, t Table, match Row) (int64, error) {
	if err := tx.writable(); err != nil {
		return 0, err
	}
	if err := checkIdent(append([]string{t.Name}, match.columns()...)...); err != nil {
		return 0, err
	}

	query := "DELETE FROM " + t.Name
	where, args := match.where()
	if where != "" {
		query += " WHERE " + where
	}

	res, err := tx.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify("delete from "+t.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("delete from "+t.Name, err)
	}
	if n > 0 {
		tx.touch(t.Name)
	}
	return n, nil
}

// Select reads cols from t filtered by where (equality on every column) in orderBy order.
// The result is a point-in-time read and does not observe later writes.
func (tx *Tx) Select(ctx context.Context, t Table, cols []string, where Row, orderBy string) (*sql.Rows, error) {
	if err := checkIdent(append(append([]string{t.Name}, cols...), where.columns()...)...); err != nil {
		return nil, err
	}
	if err := checkOrder(orderBy); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), t.Name)
	clause, args := where.where()
	if clause != "" {
		query += " WHERE " + clause
	}
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	return tx.Query(ctx, query, args...)
}

// Exists reports whether a record with the given key values exists in t.
func (tx *Tx) Exists(ctx context.Context, t Table, key Row) (bool, error) {
	if err := checkIdent(append([]string{t.Name}, key.columns()...)...); err != nil {
		return false, err
	}
	clause, args := key.where()
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", t.Name, clause)
	var exists bool
	if err := tx.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, classify("check "+t.Name, err)
	}
	return exists, nil
}

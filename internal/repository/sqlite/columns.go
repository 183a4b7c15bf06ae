package sqlite

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sakif/profile-hub/internal/apperror"
)

const userTable = "app_users"

// fieldDesc describes one canonical user field.
//
// This descriptor table is the single source of truth for query generation:
// every SELECT list, INSERT column list and UPDATE SET clause is built from
// it, filtered by the discovered column set. Column names appearing in SQL
// come from here and nowhere else — never from request input — which keeps
// the dynamic-SQL surface bounded to this fixed allow-list.
type fieldDesc struct {
	column   string
	required bool // mandatory: the store refuses to operate without it
	editable bool // user-editable via UpdateProfile
}

// userFields lists the canonical field set in storage order.
var userFields = []fieldDesc{
	{column: "id", required: true},
	{column: "email", required: true},
	{column: "name"},
	{column: "picture"},
	{column: "google_sub"},
	{column: "username", editable: true},
	{column: "bio", editable: true},
	{column: "phone", editable: true},
	{column: "address_line1", editable: true},
	{column: "address_line2", editable: true},
	{column: "city", editable: true},
	{column: "state", editable: true},
	{column: "postal_code", editable: true},
	{column: "country", editable: true},
	{column: "role"},
}

// schemaCache is the lazily-initialised, read-mostly cache of which columns
// exist on app_users.
//
// LIFETIME:
// Populated on first use, held for the remainder of the process. The schema
// is effectively invariant while the process runs, so the staleness risk is
// accepted; a migration event calls Invalidate explicitly instead of relying
// on a restart. Concurrent first loads are harmless — the re-fetch is
// idempotent and last-write-wins over identical data.
type schemaCache struct {
	mu   sync.Mutex
	cols map[string]bool
}

func newSchemaCache() *schemaCache {
	return &schemaCache{}
}

func (c *schemaCache) invalidate() {
	c.mu.Lock()
	c.cols = nil
	c.mu.Unlock()
}

// load returns the cached column set, introspecting the relation on the
// first call after startup or invalidation.
func (c *schemaCache) load(ctx context.Context, db *DB) (map[string]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cols != nil {
		return c.cols, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT name FROM pragma_table_info(?)`, userTable,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: introspecting %s: %w", userTable, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("sqlite: reading column name: %w", err)
		}
		cols[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating columns: %w", err)
	}

	c.cols = cols
	return cols, nil
}

// InvalidateSchemaCache drops the discovered column set so the next query
// re-introspects the relation. Call after an out-of-band schema migration.
func (db *DB) InvalidateSchemaCache() {
	db.schema.invalidate()
}

// Columns returns the sorted column names present on app_users.
func (db *DB) Columns(ctx context.Context) ([]string, error) {
	cols, err := db.schema.load(ctx, db)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// availableColumns loads the column set and enforces the mandatory columns.
// Every CRUD path goes through this; a relation without id/email cannot be
// operated on at all.
func (db *DB) availableColumns(ctx context.Context) (map[string]bool, error) {
	cols, err := db.schema.load(ctx, db)
	if err != nil {
		return nil, err
	}

	for _, f := range userFields {
		if f.required && !cols[f.column] {
			return nil, apperror.Schema(fmt.Sprintf("%s is missing the mandatory %s column", userTable, f.column))
		}
	}

	return cols, nil
}

// selectColumns returns the canonical fields that actually exist, in storage
// order. This is the SELECT list for every user read.
func selectColumns(cols map[string]bool) []string {
	out := make([]string, 0, len(userFields))
	for _, f := range userFields {
		if cols[f.column] {
			out = append(out, f.column)
		}
	}
	return out
}

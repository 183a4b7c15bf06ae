package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/profile-hub/internal/apperror"
	"github.com/sakif/profile-hub/internal/model"
	"github.com/sakif/profile-hub/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// FindByEmail retrieves a user by email.
// Returns apperror.ErrNotFound if no user exists with that email.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findBy(ctx, "email", email)
}

// FindByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	return db.findBy(ctx, "id", id)
}

// findBy selects a single user by one of the mandatory key columns.
// keyColumn is always "id" or "email" — a compile-time constant at every
// call site, never request input.
func (db *DB) findBy(ctx context.Context, keyColumn, value string) (*model.User, error) {
	cols, err := db.availableColumns(ctx)
	if err != nil {
		return nil, err
	}

	selected := selectColumns(cols)
	query := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s = ?`,
		strings.Join(selected, ", "), userTable, keyColumn,
	)

	holders := make([]sql.NullString, len(selected))
	dests := make([]any, len(selected))
	for i := range holders {
		dests[i] = &holders[i]
	}

	if err := db.conn.QueryRowContext(ctx, query, value).Scan(dests...); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", value)
		}
		return nil, fmt.Errorf("sqlite: finding user by %s: %w", keyColumn, err)
	}

	return buildUser(selected, holders), nil
}

// buildUser assembles a normalized User from scanned columns. Every field in
// the canonical list is present on the result; anything the schema doesn't
// hold (or holds as NULL) stays nil.
func buildUser(columns []string, values []sql.NullString) *model.User {
	u := &model.User{}
	for i, col := range columns {
		v := values[i]
		switch col {
		case "id":
			u.ID = v.String
		case "email":
			u.Email = v.String
		case "name":
			u.Name = nullable(v)
		case "picture":
			u.Picture = nullable(v)
		case "google_sub":
			u.GoogleSub = nullable(v)
		case "username":
			u.Username = nullable(v)
		case "bio":
			u.Bio = nullable(v)
		case "phone":
			u.Phone = nullable(v)
		case "address_line1":
			u.AddressLine1 = nullable(v)
		case "address_line2":
			u.AddressLine2 = nullable(v)
		case "city":
			u.City = nullable(v)
		case "state":
			u.State = nullable(v)
		case "postal_code":
			u.PostalCode = nullable(v)
		case "country":
			u.Country = nullable(v)
		case "role":
			u.Role = nullable(v)
		}
	}
	return u
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// nullIfEmpty stores "" as NULL so provider claims that are simply absent
// don't masquerade as empty profile values.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertFromIdentity inserts or updates a user based on their email.
//
// Email is the upsert key: Google guarantees the email claim is stable per
// account (and we refuse unverified emails upstream), so first login INSERTs
// and every later login UPDATEs the provider-derived fields.
//
// UPDATE RULES (existing user):
//   - name, picture: refreshed unconditionally (columns permitting)
//   - google_sub: written only when the identity actually carries one
//   - username: back-filled only if currently unset — a user-chosen
//     username is never clobbered by a login
//
// INSERT RULES (new user):
//   - every optional column that exists gets its identity value (NULL when
//     the identity has none); role defaults to "user"
//   - if the google_sub column exists but the identity has no subject id,
//     the insert is refused with a schema error: external-id tracking, once
//     enabled by the schema, is mandatory
//
// Two concurrent first logins for the same new email can race; the UNIQUE
// constraint on email turns the loser into a conflict error rather than a
// duplicate row. No retry is attempted.
func (db *DB) UpsertFromIdentity(ctx context.Context, identity model.Identity) (*model.User, error) {
	if identity.Email == "" {
		return nil, apperror.ValidationFailed("email", "email must not be empty")
	}

	cols, err := db.availableColumns(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := db.FindByEmail(ctx, identity.Email)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	if existing != nil {
		if err := db.refreshFromIdentity(ctx, existing, identity, cols); err != nil {
			return nil, err
		}
	} else {
		if err := db.insertFromIdentity(ctx, identity, cols); err != nil {
			return nil, err
		}
	}

	return db.FindByEmail(ctx, identity.Email)
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}

func (db *DB) refreshFromIdentity(ctx context.Context, existing *model.User, identity model.Identity, cols map[string]bool) error {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if cols["name"] {
		sets = append(sets, "name = ?")
		args = append(args, nullIfEmpty(identity.Name))
	}
	if cols["picture"] {
		sets = append(sets, "picture = ?")
		args = append(args, nullIfEmpty(identity.Picture))
	}
	if cols["google_sub"] && identity.GoogleSub != "" {
		sets = append(sets, "google_sub = ?")
		args = append(args, identity.GoogleSub)
	}
	// Username back-fill: only when nothing is set yet. Both NULL and ""
	// count as unset.
	if cols["username"] && identity.DefaultUsername != "" &&
		(existing.Username == nil || *existing.Username == "") {
		sets = append(sets, "username = ?")
		args = append(args, identity.DefaultUsername)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, existing.ID)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, userTable, strings.Join(sets, ", "))
	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: refreshing user %s: %w", existing.ID, err)
	}
	return nil
}

func (db *DB) insertFromIdentity(ctx context.Context, identity model.Identity, cols map[string]bool) error {
	if cols["google_sub"] && identity.GoogleSub == "" {
		return apperror.Schema("google_sub column is present but the identity has no subject id")
	}

	insertCols := []string{"id", "email"}
	args := []any{xid.New().String(), identity.Email}

	if cols["name"] {
		insertCols = append(insertCols, "name")
		args = append(args, nullIfEmpty(identity.Name))
	}
	if cols["picture"] {
		insertCols = append(insertCols, "picture")
		args = append(args, nullIfEmpty(identity.Picture))
	}
	if cols["google_sub"] {
		insertCols = append(insertCols, "google_sub")
		args = append(args, identity.GoogleSub)
	}
	if cols["username"] {
		insertCols = append(insertCols, "username")
		args = append(args, nullIfEmpty(identity.DefaultUsername))
	}
	if cols["role"] {
		insertCols = append(insertCols, "role")
		args = append(args, model.RoleUser)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")
	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s)`,
		userTable, strings.Join(insertCols, ", "), placeholders,
	)

	if _, err := db.conn.ExecContext(ctx, query, args...); err != nil {
		// A lost first-login race trips the UNIQUE(email) constraint.
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return apperror.Conflict("user", identity.Email)
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", identity.Email, err)
	}
	return nil
}

// UpdateProfile applies a sparse edit of the user-editable fields.
//
// Only fields actually supplied (non-nil) are touched; a field whose column
// doesn't exist in the active schema is silently dropped rather than being an
// error. If nothing recognizable remains, the current record is returned
// unchanged — an empty edit is a no-op, not a failure.
func (db *DB) UpdateProfile(ctx context.Context, userID string, fields model.ProfileUpdate) (*model.User, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("id", "user id must not be empty")
	}

	cols, err := db.availableColumns(ctx)
	if err != nil {
		return nil, err
	}

	supplied := map[string]*string{
		"username":      fields.Username,
		"bio":           fields.Bio,
		"phone":         fields.Phone,
		"address_line1": fields.AddressLine1,
		"address_line2": fields.AddressLine2,
		"city":          fields.City,
		"state":         fields.State,
		"postal_code":   fields.PostalCode,
		"country":       fields.Country,
	}

	// Walk the descriptor table (not the request) so the SET clause order is
	// deterministic and only allow-listed editable columns can appear.
	sets := make([]string, 0, len(userFields))
	args := make([]any, 0, len(userFields)+1)
	for _, f := range userFields {
		if !f.editable || !cols[f.column] {
			continue
		}
		value, ok := supplied[f.column]
		if !ok || value == nil {
			continue
		}
		sets = append(sets, f.column+" = ?")
		args = append(args, *value)
	}

	if len(sets) == 0 {
		return db.FindByID(ctx, userID)
	}

	args = append(args, userID)
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = ?`, userTable, strings.Join(sets, ", "))

	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating profile for user %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperror.NotFound("user", userID)
	}

	return db.FindByID(ctx, userID)
}

// Package repository defines the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages (sqlite).
package repository

import (
	"context"

	"github.com/sakif/profile-hub/internal/model"
)

// UserRepository is the schema-tolerant user store.
//
// "Schema-tolerant" means the implementation discovers which optional columns
// actually exist on the user relation and adapts every generated query to
// them: lookups select only existing columns, writes drop fields whose
// columns are absent, and returned records always carry the full canonical
// field list with nil for anything the schema can't hold.
type UserRepository interface {
	// FindByEmail returns the user with the given email, or
	// apperror.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID returns the user with the given internal id, or
	// apperror.ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpsertFromIdentity finds-or-creates a user by the identity's email and
	// refreshes provider-derived fields. A user-chosen username is never
	// overwritten; the identity's DefaultUsername only back-fills an unset one.
	UpsertFromIdentity(ctx context.Context, identity model.Identity) (*model.User, error)

	// UpdateProfile applies a sparse profile edit. Fields whose columns are
	// missing from the schema are silently dropped; an effectively empty
	// update returns the current record unchanged.
	UpdateProfile(ctx context.Context, userID string, fields model.ProfileUpdate) (*model.User, error)

	// Columns returns the sorted names of the columns present on the user
	// relation (the /debug/schema payload).
	Columns(ctx context.Context) ([]string, error)
}

// Package model defines the data structures used throughout the application.
package model

// User represents a registered account plus its editable profile.
//
// Google Sign-In is the identity provider: the primary external identifier is
// the Google subject id ("sub" claim). We still generate our own internal
// string ID (xid) so our primary keys aren't tied to a third party's
// numbering scheme.
//
// WHY POINTER FIELDS?
// The app_users table is deployed with varying subsets of the optional
// columns (partially migrated environments are a supported configuration).
// Every optional field is a *string so that a missing column — or a NULL
// value — renders as JSON null rather than being omitted or faked with "".
// The API's user shape is always "full": clients can rely on every key being
// present in every response.
type User struct {
	ID           string  `json:"id"            db:"id"`
	Email        string  `json:"email"         db:"email"`
	Name         *string `json:"name"          db:"name"`
	Picture      *string `json:"picture"       db:"picture"`
	GoogleSub    *string `json:"google_sub"    db:"google_sub"` // Google's stable subject id
	Username     *string `json:"username"      db:"username"`
	Bio          *string `json:"bio"           db:"bio"`
	Phone        *string `json:"phone"         db:"phone"`
	AddressLine1 *string `json:"address_line1" db:"address_line1"`
	AddressLine2 *string `json:"address_line2" db:"address_line2"`
	City         *string `json:"city"          db:"city"`
	State        *string `json:"state"         db:"state"`
	PostalCode   *string `json:"postal_code"   db:"postal_code"`
	Country      *string `json:"country"       db:"country"`
	Role         *string `json:"role"          db:"role"` // "user", "admin" or "moderator"
}

// Roles allowed in the role column. New rows default to RoleUser.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// Identity is the verified claim set handed to the user store on login.
// Email is the upsert key. Name/Picture/GoogleSub refresh the stored profile;
// DefaultUsername is only used to back-fill an unset username.
type Identity struct {
	Email           string
	Name            string
	Picture         string
	GoogleSub       string
	DefaultUsername string
}

// ProfileUpdate is a sparse set of user-editable fields.
//
// nil means "leave this column alone" — both an absent JSON key and an
// explicit null decode to nil, so neither touches the stored value. These are
// partial-update semantics, not full replacement.
type ProfileUpdate struct {
	Username     *string `json:"username"`
	Bio          *string `json:"bio"`
	Phone        *string `json:"phone"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	State        *string `json:"state"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
}

// IsZero reports whether no field of the update is set.
func (p ProfileUpdate) IsZero() bool {
	return p.Username == nil && p.Bio == nil && p.Phone == nil &&
		p.AddressLine1 == nil && p.AddressLine2 == nil && p.City == nil &&
		p.State == nil && p.PostalCode == nil && p.Country == nil
}

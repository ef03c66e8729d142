package domain

import (
	"context"
	"strings"
	"time"
)

// Role is the authorization level carried by an account and its tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// DefaultAvatar is assigned to accounts created without a picture.
const DefaultAvatar = "default-avatar.jpg"

// Preferences is client-owned styling data. It is stored as-is; there is no
// cross-field validation.
type Preferences struct {
	Style     []string       `json:"style,omitempty"`
	Colors    []string       `json:"colors,omitempty"`
	Sizes     map[string]any `json:"sizes,omitempty"`
	Occasions []string       `json:"occasions,omitempty"`
}

// Account is the persisted identity record unifying local and federated
// credentials.
type Account struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	GoogleSubject string
	AppleSubject  string
	Role          Role
	Avatar        string
	Preferences   Preferences
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasAuthMethod reports whether the account can authenticate at all: a
// password hash or at least one linked provider subject.
func (a *Account) HasAuthMethod() bool {
	return a.PasswordHash != "" || a.GoogleSubject != "" || a.AppleSubject != ""
}

// Subject returns the subject id linked for the given provider.
func (a *Account) Subject(p Provider) string {
	switch p {
	case ProviderGoogle:
		return a.GoogleSubject
	case ProviderApple:
		return a.AppleSubject
	}
	return ""
}

// PublicAccount is the projection of an Account that is safe to return to
// clients.
type PublicAccount struct {
	ID            string      `json:"_id"`
	Name          string      `json:"name"`
	Email         string      `json:"email"`
	Role          Role        `json:"role"`
	Avatar        string      `json:"avatar"`
	Preferences   Preferences `json:"preferences"`
	EmailVerified bool        `json:"emailVerified"`
}

// Public strips credentials and provider links.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		Avatar:        a.Avatar,
		Preferences:   a.Preferences,
		EmailVerified: a.EmailVerified,
	}
}

// NormalizeEmail trims and lower-cases an address. Email uniqueness is
// case-insensitive, so every lookup and write goes through here.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountPatch lists the fields UpdateByID may change. Nil fields are left
// untouched. Provider subjects are conditional: a store only sets them when
// the stored value is empty or already equal, and otherwise reports
// ErrDuplicateIdentity. Changing the email clears EmailVerified unless the
// patch sets it explicitly.
type AccountPatch struct {
	Name          *string
	Email         *string
	Avatar        *string
	Preferences   *Preferences
	PasswordHash  *string
	GoogleSubject *string
	AppleSubject  *string
	EmailVerified *bool
}

// LinkSubject returns a patch that links a provider subject to an account.
func LinkSubject(p Provider, subject string) AccountPatch {
	var patch AccountPatch
	switch p {
	case ProviderGoogle:
		patch.GoogleSubject = &subject
	case ProviderApple:
		patch.AppleSubject = &subject
	}
	return patch
}

// Apply copies the patch onto a. Provider subjects follow the conditional
// rule described on AccountPatch. UpdatedAt is left to the caller.
func (a *Account) Apply(patch AccountPatch) error {
	if patch.GoogleSubject != nil {
		if a.GoogleSubject != "" && a.GoogleSubject != *patch.GoogleSubject {
			return ErrDuplicateIdentity
		}
	}
	if patch.AppleSubject != nil {
		if a.AppleSubject != "" && a.AppleSubject != *patch.AppleSubject {
			return ErrDuplicateIdentity
		}
	}

	if patch.Name != nil {
		a.Name = *patch.Name
	}
	if patch.Email != nil {
		email := NormalizeEmail(*patch.Email)
		if email != a.Email && patch.EmailVerified == nil {
			// No provider has vouched for the new address.
			a.EmailVerified = false
		}
		a.Email = email
	}
	if patch.Avatar != nil {
		a.Avatar = *patch.Avatar
	}
	if patch.Preferences != nil {
		a.Preferences = *patch.Preferences
	}
	if patch.PasswordHash != nil {
		a.PasswordHash = *patch.PasswordHash
	}
	if patch.GoogleSubject != nil {
		a.GoogleSubject = *patch.GoogleSubject
	}
	if patch.AppleSubject != nil {
		a.AppleSubject = *patch.AppleSubject
	}
	if patch.EmailVerified != nil {
		a.EmailVerified = *patch.EmailVerified
	}
	return nil
}

// AccountStore is the persistence contract the identity core depends on.
// Implementations must enforce uniqueness of email and of each provider
// subject, returning ErrDuplicateEmail or ErrDuplicateIdentity, and return
// ErrNotFound for missing records.
type AccountStore interface {
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByProviderSubject(ctx context.Context, provider Provider, subject string) (*Account, error)
	Insert(ctx context.Context, account *Account) error
	UpdateByID(ctx context.Context, id string, patch AccountPatch) (*Account, error)
}

package drive

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string         `bun:"first_name" json:"first_name,omitempty"`
	LastName       string         `bun:"last_name" json:"last_name,omitempty"`
	Username       string         `bun:"username,notnull,unique" json:"username,omitempty"`
	ProfilePicture string         `bun:"profile_picture" json:"profile_picture,omitempty"`
	Email          string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string         `bun:"password_hash" json:"-"`
	EmailValidated bool           `bun:"is_email_verified" json:"is_email_verified,omitempty"`
	LoginAttempts  int            `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time     `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time     `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	Metadata       map[string]any `bun:"metadata" json:"metadata,omitempty"`
	Files          []*File        `bun:"rel:has-many,join:id=owner_id" json:"files,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// DisplayName is what we put in session tokens and emails
func (u *User) DisplayName() string {
	if u.FirstName != "" || u.LastName != "" {
		name := u.FirstName
		if u.LastName != "" {
			if name != "" {
				name += " "
			}
			name += u.LastName
		}
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}

// File is a record pointing at an object kept in external storage.
// The storage key is opaque to us; uploads happen out of band.
type File struct {
	bun.BaseModel `bun:"table:files,alias:fil"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	OwnerID       uuid.UUID      `bun:"owner_id,notnull,type:uuid" json:"owner_id,omitempty"`
	Owner         *User          `bun:"rel:belongs-to,join:owner_id=id" json:"owner,omitempty"`
	StorageKey    string         `bun:"storage_key,notnull,unique" json:"storage_key,omitempty"`
	Name          string         `bun:"name,notnull" json:"name,omitempty"`
	MimeType      string         `bun:"mime_type" json:"mime_type,omitempty"`
	Size          int64          `bun:"size" json:"size,omitempty"`
	Metadata      map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time     `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// VerificationToken maps an email to the hash of a one time sign in
// secret. The cleartext secret only ever lives in the emailed link.
type VerificationToken struct {
	bun.BaseModel `bun:"table:verification_tokens,alias:vtk"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	ConsumedAt    *time.Time `bun:"consumed_at,nullzero" json:"consumed_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Consumed reports whether the token has already been spent
func (t *VerificationToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// Expired reports whether the token is past its validity window
func (t *VerificationToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// BillingStatus is the billing account status
type BillingStatus = string

const (
	// BillingStatusInactive means no active subscription
	BillingStatusInactive BillingStatus = "inactive"
	// BillingStatusActive means the subscription is current
	BillingStatusActive BillingStatus = "active"
	// BillingStatusPastDue means a payment failed and the processor is retrying
	BillingStatusPastDue BillingStatus = "past_due"
)

// BillingAccount mirrors the state we keep for the external payment
// processor; the processor itself is the source of truth.
type BillingAccount struct {
	bun.BaseModel    `bun:"table:billing_accounts,alias:bil"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID           uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User             *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	CustomerID       string     `bun:"customer_id,notnull" json:"customer_id,omitempty"`
	Plan             string     `bun:"plan" json:"plan,omitempty"`
	Status           string     `bun:"status,notnull" json:"status,omitempty"`
	CurrentPeriodEnd *time.Time `bun:"current_period_end,nullzero" json:"current_period_end,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

package models

import "time"

// AttemptScope names the operation an attempt row belongs to. Rate-limit
// windows are evaluated per scope so a burst of signups cannot lock logins.
type AttemptScope string

const (
	// ScopeLogin covers credential checks.
	ScopeLogin AttemptScope = "login"

	// ScopeSignup covers registration entries.
	ScopeSignup AttemptScope = "signup"

	// ScopePasswordReset covers reset-link requests.
	ScopePasswordReset AttemptScope = "password_reset"
)

// IdentifierKind records how the submitted login identifier was classified.
type IdentifierKind string

const (
	// KindUsername means the identifier was looked up as a username.
	KindUsername IdentifierKind = "username"

	// KindEmail means the identifier matched the email grammar.
	KindEmail IdentifierKind = "email"

	// KindUserCode means the identifier was a 3-6 digit staff code.
	KindUserCode IdentifierKind = "user_id"
)

// Attempt is one row of the append-only attempt ledger. Rows are inserted on
// every request that reaches the credential or token stage, successful or
// not, and are never mutated or deleted by this service.
type Attempt struct {
	// ID is the internal identifier of the ledger row.
	ID int64 `json:"-"`

	// Identifier is the login name, email, or code the caller submitted.
	Identifier string `json:"identifier"`

	// Scope is the operation the attempt belongs to.
	Scope AttemptScope `json:"scope"`

	// Kind records the identifier classification used for the lookup.
	Kind IdentifierKind `json:"kind"`

	// IP is the source address of the request.
	IP string `json:"ip"`

	// UserAgent is the caller's User-Agent header.
	UserAgent string `json:"user_agent"`

	// Success reports the outcome of the attempt.
	Success bool `json:"success"`

	// CreatedAt is the moment the attempt was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the Attempt model.
func (a Attempt) TableName() string {
	return "login_attempts"
}

// RequestMeta carries the client metadata of one inbound request. It is the
// explicit request-context object handed to every operation instead of any
// ambient request state.
type RequestMeta struct {
	// IP is the client source address.
	IP string

	// UserAgent is the client User-Agent header.
	UserAgent string
}

package models

import "time"

// SessionData is the server-side session record keyed by an opaque session
// id. The authenticated fields are populated only after every verification
// gate has passed; the Temp* fields hold pre-auth registration state and are
// cleared when the pipeline completes.
type SessionData struct {
	UserID       int64     `json:"user_id,omitempty"`
	Username     string    `json:"username,omitempty"`
	RoleID       int64     `json:"role_id,omitempty"`
	RoleName     string    `json:"role_name,omitempty"`
	LoginSuccess bool      `json:"login_success,omitempty"`
	LoginTime    time.Time `json:"login_time,omitempty"`
	LastActivity time.Time `json:"last_activity,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`

	// Pre-auth registration pipeline state.
	TempUserID  int64  `json:"temp_user_id,omitempty"`
	TempEmail   string `json:"temp_email,omitempty"`
	OTPVerified bool   `json:"otp_verified,omitempty"`

	// Operational POS flags. While either is set, logout is refused.
	TillOpen    bool `json:"till_open,omitempty"`
	POSOperator bool `json:"pos_operator,omitempty"`

	// Flash holds transient messages shown on the next rendered page.
	Flash []FlashMessage `json:"flash,omitempty"`
}

// Authenticated reports whether the record represents a completed login.
func (d SessionData) Authenticated() bool {
	return d.LoginSuccess && d.UserID != 0
}

// ClearPreAuth removes all pre-auth registration keys.
func (d *SessionData) ClearPreAuth() {
	d.TempUserID = 0
	d.TempEmail = ""
	d.OTPVerified = false
}

// FlashMessage is one transient user-facing message with a severity tag.
type FlashMessage struct {
	Text     string   `json:"text"`
	Severity Severity `json:"severity"`
}

package models

// Severity tags a user-facing message for presentation.
type Severity string

const (
	SeverityDanger  Severity = "danger"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Outcome is the tagged result of one account-security operation. The
// presentation layer pattern-matches on the concrete type instead of
// re-deriving state from loose message/mode flags.
//
// Exactly three variants exist: [Success], [Rejected], and [NeedsInput].
type Outcome interface {
	outcome()
}

// Success means the operation completed. When Session is non-nil the caller
// must rotate the session id and store the record; Notice, when set, is shown
// on the destination page.
type Success struct {
	// Redirect is the post-operation destination path.
	Redirect string

	// Notice is an optional flash message for the destination page.
	Notice string

	// Severity tags Notice. Warning is used for committed transitions
	// whose accompanying notification failed to send.
	Severity Severity

	// Session, when non-nil, is the full authenticated record to
	// establish under a freshly issued session id.
	Session *SessionData
}

// Rejected means the operation was refused. Reason is the complete
// user-visible text; it never distinguishes unknown accounts from bad
// credentials.
type Rejected struct {
	Reason   string
	Severity Severity
}

// NeedsInput means the operation advanced and the caller must render the
// named pipeline stage next. PreAuth, when non-nil, replaces the session's
// pre-auth registration state.
type NeedsInput struct {
	// Stage is the pipeline stage the client should render. The zero
	// value means the pipeline entry form: a forced restart.
	Stage SignupState

	// Notice is an optional flash message for the stage page.
	Notice string

	// Severity tags Notice.
	Severity Severity

	// PreAuth replaces the pre-auth session keys when non-nil.
	PreAuth *PreAuthState
}

// PreAuthState is the pre-auth session write-set returned by registration
// operations.
type PreAuthState struct {
	TempUserID  int64
	TempEmail   string
	OTPVerified bool
}

func (Success) outcome()    {}
func (Rejected) outcome()   {}
func (NeedsInput) outcome() {}

// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/models"
)

// applyOutcome is the single translation point from a service outcome to the
// HTTP response: session writes, flash messages, cookie updates and the
// redirect. rejectPath is where a [models.Rejected] outcome sends the user to
// try again.
func (h *Handler) applyOutcome(w http.ResponseWriter, r *http.Request, sid string, sess *models.SessionData, out models.Outcome, rejectPath string) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	switch o := out.(type) {
	case models.Success:
		if o.Session != nil {
			// Privilege change: the record moves under a fresh id so a
			// pre-auth cookie value never names an authenticated session.
			record := o.Session
			if o.Notice != "" {
				record.Flash = append(record.Flash, models.FlashMessage{Text: o.Notice, Severity: o.Severity})
			}
			newSID, err := h.sessions.Rotate(ctx, sid, record)
			if err != nil {
				log.Err(err).Str("func", "*Handler.applyOutcome").Msg("error: session rotation failed")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if err := h.cookies.Write(w, newSID); err != nil {
				log.Err(err).Str("func", "*Handler.applyOutcome").Msg("error: session cookie write failed")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, o.Redirect, http.StatusSeeOther)
			return
		}

		if o.Notice != "" {
			h.flash(w, r, sid, sess, o.Notice, o.Severity)
		}
		http.Redirect(w, r, o.Redirect, http.StatusSeeOther)

	case models.Rejected:
		h.flash(w, r, sid, sess, o.Reason, o.Severity)
		http.Redirect(w, r, rejectPath, http.StatusSeeOther)

	case models.NeedsInput:
		if o.PreAuth != nil || o.Notice != "" {
			var err error
			sid, sess, err = h.ensureSession(w, r, sid, sess)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if o.PreAuth != nil {
				sess.TempUserID = o.PreAuth.TempUserID
				sess.TempEmail = o.PreAuth.TempEmail
				sess.OTPVerified = o.PreAuth.OTPVerified
			}
			if o.Notice != "" {
				sess.Flash = append(sess.Flash, models.FlashMessage{Text: o.Notice, Severity: o.Severity})
			}
			if err := h.sessions.Save(ctx, sid, sess); err != nil {
				log.Err(err).Str("func", "*Handler.applyOutcome").Msg("error: session save failed")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
		}
		http.Redirect(w, r, stagePath(o.Stage), http.StatusSeeOther)

	default:
		log.Error().Str("func", "*Handler.applyOutcome").Msg("error: unknown outcome variant")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// flash appends one message to the session, creating an anonymous session
// when the request has none. Failures are logged and swallowed: losing a
// notice must not fail the operation that produced it.
func (h *Handler) flash(w http.ResponseWriter, r *http.Request, sid string, sess *models.SessionData, text string, severity models.Severity) {
	log := logger.FromRequest(r)

	sid, sess, err := h.ensureSession(w, r, sid, sess)
	if err != nil {
		return
	}
	sess.Flash = append(sess.Flash, models.FlashMessage{Text: text, Severity: severity})
	if err := h.sessions.Save(r.Context(), sid, sess); err != nil {
		log.Err(err).Str("func", "*Handler.flash").Msg("error: flash save failed")
	}
}

// ensureSession returns the request's session, creating an anonymous one and
// setting its cookie when none exists yet.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request, sid string, sess *models.SessionData) (string, *models.SessionData, error) {
	log := logger.FromRequest(r)

	if sess != nil {
		return sid, sess, nil
	}

	sess = &models.SessionData{}
	sid, err := h.sessions.Create(r.Context(), sess)
	if err != nil {
		log.Err(err).Str("func", "*Handler.ensureSession").Msg("error: session create failed")
		return "", nil, err
	}
	if err := h.cookies.Write(w, sid); err != nil {
		log.Err(err).Str("func", "*Handler.ensureSession").Msg("error: session cookie write failed")
		return "", nil, err
	}
	return sid, sess, nil
}

// stagePath maps a pipeline stage to the page that collects its input. The
// zero stage is the entry form.
func stagePath(stage models.SignupState) string {
	switch stage {
	case models.SignupCreated:
		return "/signup/verify"
	case models.SignupOTPVerified:
		return "/signup/complete"
	case models.SignupComplete:
		return "/login"
	default:
		return "/signup"
	}
}

// preAuthFrom lifts the pre-auth registration keys out of a session record.
func preAuthFrom(sess *models.SessionData) models.PreAuthState {
	if sess == nil {
		return models.PreAuthState{}
	}
	return models.PreAuthState{
		TempUserID:  sess.TempUserID,
		TempEmail:   sess.TempEmail,
		OTPVerified: sess.OTPVerified,
	}
}

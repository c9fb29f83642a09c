// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/internal/utils"
	"github.com/tillpoint/accounts/models"
)

func (h *Handler) requestReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)

	if err := r.ParseForm(); err != nil {
		log.Err(err).Msg("invalid form was passed")
		http.Error(w, "invalid form was passed", http.StatusBadRequest)
		return
	}

	outcome, err := h.services.PasswordResetService.Request(ctx, r.PostFormValue("email"), requestMeta(r))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during reset request")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/reset")
}

// checkResetToken backs the reset form page: it reports whether the link's
// token is still live without consuming it, so an expired link is announced
// before the user types a new password.
func (h *Handler) checkResetToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	tokenValue := r.URL.Query().Get("token")

	_, err := h.services.TokenService.Check(ctx, tokenValue, models.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, store.ErrTokenInvalid) {
			sid, sess := h.currentSession(r)
			h.flash(w, r, sid, sess, service.MsgResetTokenInvalid, models.SeverityDanger)
			http.Redirect(w, r, "/reset", http.StatusSeeOther)
			return
		}
		log.Err(err).Msg("unexpected error occurred during reset token check")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, map[string]bool{"valid": true}, http.StatusOK)
}

func (h *Handler) redeemReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)

	if err := r.ParseForm(); err != nil {
		log.Err(err).Msg("invalid form was passed")
		http.Error(w, "invalid form was passed", http.StatusBadRequest)
		return
	}

	tokenValue := r.PostFormValue("token")

	outcome, err := h.services.PasswordResetService.Redeem(ctx, tokenValue, r.PostFormValue("password"), r.PostFormValue("confirm_password"))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during reset redemption")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// A refused password leaves the token live, so send the user back to
	// the same form with the link intact.
	retryPath := "/reset/redeem?token=" + url.QueryEscape(tokenValue)
	h.applyOutcome(w, r, sid, sess, outcome, retryPath)
}

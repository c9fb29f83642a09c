// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/models"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)
	if sess != nil && sess.Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		log.Err(err).Msg("invalid form was passed")
		http.Error(w, "invalid form was passed", http.StatusBadRequest)
		return
	}

	outcome, err := h.services.AuthService.Login(ctx, r.PostFormValue("identifier"), r.PostFormValue("password"), requestMeta(r))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/login")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)

	outcome := h.services.AuthService.Logout(sess)
	success, ok := outcome.(models.Success)
	if !ok {
		// Till still open or operator signed on: stay where the user was.
		returnTo := service.SafeRedirect(r.PostFormValue("return_to"), "/")
		h.applyOutcome(w, r, sid, sess, outcome, returnTo)
		return
	}

	if sid != "" {
		if err := h.sessions.Destroy(ctx, sid); err != nil {
			log.Err(err).Msg("unexpected error occurred during session teardown")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}
	h.cookies.Clear(w)

	// Fresh anonymous session so the sign-out notice survives the redirect.
	h.applyOutcome(w, r, "", nil, success, "/login")
}

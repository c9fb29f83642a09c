// SPDX-License-Identifier: Apache-2.0

package http

import (
	"net/http"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/service"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
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

	input := service.RegistrationInput{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}

	outcome, err := h.services.RegistrationService.Register(ctx, input, requestMeta(r))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during registration")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/signup")
}

func (h *Handler) verifySignupOTP(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := h.services.RegistrationService.VerifyOTP(ctx, preAuthFrom(sess), r.PostFormValue("code"), requestMeta(r))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during code verification")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/signup/verify")
}

func (h *Handler) completeSignup(w http.ResponseWriter, r *http.Request) {
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

	outcome, err := h.services.RegistrationService.Complete(ctx, preAuthFrom(sess), r.PostFormValue("code"), requestMeta(r))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during signup completion")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/signup/complete")
}

func (h *Handler) resendSignupOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)

	outcome, err := h.services.RegistrationService.ResendOTP(ctx, preAuthFrom(sess))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during code resend")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/signup/verify")
}

func (h *Handler) verifyEmailLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	sid, sess := h.currentSession(r)

	outcome, err := h.services.RegistrationService.VerifyEmailLink(ctx, r.URL.Query().Get("token"))
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during email confirmation")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.applyOutcome(w, r, sid, sess, outcome, "/login")
}

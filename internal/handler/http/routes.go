// SPDX-License-Identifier: Apache-2.0

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// account-security surface
	router.Group(func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Post("/signup", h.register)
		r.Post("/signup/verify-otp", h.verifySignupOTP)
		r.Post("/signup/complete", h.completeSignup)
		r.Post("/signup/resend-otp", h.resendSignupOTP)
		r.Get("/signup/verify-email", h.verifyEmailLink)

		r.Post("/reset", h.requestReset)
		r.Get("/reset/redeem", h.checkResetToken)
		r.Post("/reset/redeem", h.redeemReset)
	})

	// back-office surface, admin session required
	router.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Post("/users/{id}/unlock", h.unlockUser)
		r.Get("/attempts", h.listAttempts)
	})

	router.Get("/api/version", h.getServerVersion)
	router.Get("/healthz", h.healthz)

	return router
}

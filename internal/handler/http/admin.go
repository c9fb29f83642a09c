// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/internal/utils"
	"github.com/tillpoint/accounts/models"
)

const roleAdmin = "admin"

// attemptsDefaultWindow bounds the listing when no window is requested.
const attemptsDefaultWindow = time.Hour

// requireAdmin refuses requests without an authenticated admin session.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, sess := h.currentSession(r)
		if sess == nil || !sess.Authenticated() {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		if sess.RoleName != roleAdmin {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) unlockUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		log.Err(err).Msg("invalid user id was passed")
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.services.AdminService.UnlockUser(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			http.Error(w, "no user was found", http.StatusNotFound)
			return
		}
		log.Err(err).Msg("unexpected error occurred during unlock")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	query := r.URL.Query()

	scope := models.AttemptScope(query.Get("scope"))
	ip := query.Get("ip")

	window := attemptsDefaultWindow
	if raw := query.Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid window", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	var limit uint64
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	attempts, err := h.services.AdminService.ListAttempts(ctx, scope, ip, time.Now().Add(-window), limit)
	if err != nil {
		log.Err(err).Msg("unexpected error occurred during attempt listing")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, attempts, http.StatusOK)
}

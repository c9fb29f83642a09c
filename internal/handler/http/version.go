// SPDX-License-Identifier: Apache-2.0

package http

import (
	"context"
	"net/http"
	"time"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/utils"
)

const healthCheckTimeout = 5 * time.Second

func (h *Handler) getServerVersion(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, map[string]string{
		"version": h.build.BuildVersion(),
		"date":    h.build.BuildDate(),
		"commit":  h.build.BuildCommit(),
	}, http.StatusOK)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			log.Err(err).Str("dependency", check.Name).Msg("health check failed")
			report[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[check.Name] = "ok"
	}

	utils.WriteJSON(w, report, status)
}

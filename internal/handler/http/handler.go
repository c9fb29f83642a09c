// SPDX-License-Identifier: Apache-2.0

// Package http exposes the account-security operations over HTTP. Form
// submissions come in, the service layer returns a [models.Outcome], and the
// outcome is translated into a redirect plus session writes in one place so
// every endpoint presents results the same way.
package http

import (
	"context"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/internal/session"
	"github.com/tillpoint/accounts/models"
)

// HealthCheck is one named dependency check run by the health endpoint.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	services *service.Services
	sessions session.Manager
	cookies  *session.CookieCodec
	build    models.AppBuildInfo
	checks   []HealthCheck

	logger *logger.Logger
}

func NewHandler(services *service.Services, sessions session.Manager, cookies *session.CookieCodec, build models.AppBuildInfo, checks []HealthCheck, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		sessions: sessions,
		cookies:  cookies,
		build:    build,
		checks:   checks,
		logger:   logger,
	}
}

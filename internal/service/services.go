// SPDX-License-Identifier: Apache-2.0

package service

import (
	"github.com/tillpoint/accounts/internal/config"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mailer"
	"github.com/tillpoint/accounts/internal/store"
)

type Services struct {
	RateLimiter          RateLimiter
	TokenService         TokenService
	AuthService          AuthService
	RegistrationService  RegistrationService
	PasswordResetService PasswordResetService
	AdminService         AdminService
}

func NewServices(repos *store.Repositories, sender mailer.Sender, cfg *config.StructuredConfig, logger *logger.Logger) *Services {
	limiter := NewRateLimiter(repos.Attempts, cfg.Security, logger)
	tokens := NewTokenService(repos.Tokens, cfg.Security, logger)

	return &Services{
		RateLimiter:          limiter,
		TokenService:         tokens,
		AuthService:          NewAuthService(repos.Users, repos.Attempts, limiter, cfg.Security, cfg.App, logger),
		RegistrationService:  NewRegistrationService(repos.Users, repos.Attempts, tokens, limiter, sender, cfg.Security, cfg.App, logger),
		PasswordResetService: NewPasswordResetService(repos.Users, repos.Attempts, tokens, limiter, sender, cfg.Security, cfg.App, logger),
		AdminService:         NewAdminService(repos.Users, repos.Attempts, logger),
	}
}

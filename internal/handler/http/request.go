// SPDX-License-Identifier: Apache-2.0

package http

import (
	"errors"
	"net"
	"net/http"

	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/session"
	"github.com/tillpoint/accounts/models"
)

// currentSession resolves the request's session from the signed cookie.
// A missing, tampered or expired cookie yields ("", nil): the request simply
// proceeds anonymously.
func (h *Handler) currentSession(r *http.Request) (string, *models.SessionData) {
	log := logger.FromRequest(r)

	sid, err := h.cookies.Read(r)
	if err != nil {
		return "", nil
	}

	data, err := h.sessions.Get(r.Context(), sid)
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			log.Err(err).Str("func", "*Handler.currentSession").Msg("error: session store read failed")
		}
		return "", nil
	}
	return sid, data
}

// requestMeta extracts the client address and user agent handed to every
// service operation. X-Real-IP wins when a reverse proxy sets it.
func requestMeta(r *http.Request) models.RequestMeta {
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}

	return models.RequestMeta{
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}

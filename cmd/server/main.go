// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/tillpoint/accounts/internal/config"
	handlerhttp "github.com/tillpoint/accounts/internal/handler/http"
	"github.com/tillpoint/accounts/internal/logger"
	"github.com/tillpoint/accounts/internal/mailer"
	"github.com/tillpoint/accounts/internal/server"
	"github.com/tillpoint/accounts/internal/service"
	"github.com/tillpoint/accounts/internal/session"
	"github.com/tillpoint/accounts/internal/store"
	"github.com/tillpoint/accounts/internal/workers"
	"github.com/tillpoint/accounts/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewLogger("accounts-server")
	cfg, err := config.GetStructuredConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	ctx := context.Background()

	db, err := store.NewConnect(ctx, cfg.Storage.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("error applying migrations")
	}
	repos := store.NewRepositories(db)

	redisClient, err := session.NewRedisClient(ctx, cfg.Storage.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("error connecting to redis")
	}
	sessions := session.NewManager(session.NewRedisStore(redisClient, log), cfg.Session.TTL, log)
	cookies := session.NewCookieCodec(cfg.Session)

	sender := mailer.NewSMTPSender(cfg.SMTP, log)
	services := service.NewServices(repos, sender, cfg, log)

	build := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	checks := []handlerhttp.HealthCheck{
		{Name: "postgres", Check: db.PingContext},
		{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}

	handler := handlerhttp.NewHandler(services, sessions, cookies, build, checks, log)

	srv, err := server.NewServer(handler.Init(), cfg.Server, log)
	if err != nil {
		log.Fatal().Err(err).Msg("error creating server")
	}

	background := workers.NewWorkers(workers.NewTokenJanitor(repos.Tokens, log))
	background.Run()
	defer background.Stop()

	srv.RunServer()
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}

	if buildDate == "" {
		buildDate = "N/A"
	}

	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}

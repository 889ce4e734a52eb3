package main

import (
	"sales-ops-api/internal/clock"
	"sales-ops-api/internal/config"
	"sales-ops-api/internal/database"
	"sales-ops-api/internal/routes"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	if err := clock.Init(cfg.OrgTimezone); err != nil {
		logrus.WithError(err).Fatal("invalid ORG_TIMEZONE")
	}

	database.InitDB(cfg.DBPath)

	ginRoutes := routes.SetupRoutes()

	addr := ":" + cfg.Port
	logrus.WithFields(logrus.Fields{
		"addr":     addr,
		"timezone": cfg.OrgTimezone,
	}).Info("server starting")

	if err := ginRoutes.Run(addr); err != nil {
		logrus.WithError(err).Fatal("failed to start server")
	}
}

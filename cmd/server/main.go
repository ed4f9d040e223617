package main

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ballha123/wifak-banque/internal/api"
	"github.com/ballha123/wifak-banque/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load configuration: %v", err)
	}
	if err := cfg.ConfigureLogging(); err != nil {
		logrus.Fatalf("configure logging: %v", err)
	}

	policy, err := cfg.Policy()
	if err != nil {
		logrus.Fatalf("load escalation policy: %v", err)
	}

	if !cfg.DisableJournal {
		if err := os.MkdirAll(filepath.Dir(cfg.JournalPath), 0o755); err != nil {
			logrus.Fatalf("create journal directory: %v", err)
		}
	}

	server, err := api.NewServer(api.Config{
		JournalPath:    cfg.JournalPath,
		DisableJournal: cfg.DisableJournal,
		SilentDB:       cfg.SilentDB,
		Policy:         policy,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close journal")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.Infof("starting delegation service on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

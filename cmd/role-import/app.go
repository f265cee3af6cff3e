package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/role-import/modules/access/infrastructure/persistence"
	"github.com/iota-uz/role-import/pkg/composables"
	"github.com/iota-uz/role-import/pkg/configuration"
	"github.com/iota-uz/role-import/pkg/database"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	cfg     *configuration.Configuration
	profile configuration.Profile
	logger  *logrus.Entry
	tables  persistence.Tables
}

func newApp(root *rootOptions) (*app, error) {
	cfg, err := configuration.Load(root.envFiles)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	profile, err := configuration.LoadProfile(root.profile)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	return &app{
		cfg:     cfg,
		profile: profile,
		logger:  logrus.NewEntry(cfg.Logger()),
		tables:  persistence.TablesFrom(cfg.Database),
	}, nil
}

// connect opens the database and binds it to the returned context.
func (a *app) connect(ctx context.Context) (context.Context, *sqlx.DB, error) {
	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return nil, nil, withCode(exitDB, err)
	}
	a.logger.WithFields(logrus.Fields{
		"driver": a.cfg.Database.Driver,
		"host":   a.cfg.Database.Host,
		"db":     a.cfg.Database.Name,
	}).Debug("connected")
	return composables.WithDB(ctx, db), db, nil
}

// withTimeout bounds a database phase by DB_TIMEOUT.
func (a *app) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Database.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.cfg.Database.Timeout)
}

func closeDB(db *sqlx.DB, logger *logrus.Entry) {
	if err := db.Close(); err != nil {
		logger.WithError(fmt.Errorf("close db: %w", err)).Warn("close failed")
	}
}

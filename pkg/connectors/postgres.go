// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/configs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

type PostgresConnector interface {
	Connector
	DB(ctx context.Context) *gorm.DB
	// Migrate creates or alters tables for the given models.
	Migrate(ctx context.Context, models ...interface{}) error
}

type postgresConnector struct {
	cfg    configs.PostgresConfig
	logger commons.Logger
	db     *gorm.DB
}

func NewPostgresConnector(cfg configs.PostgresConfig, logger commons.Logger) PostgresConnector {
	return &postgresConnector{cfg: cfg, logger: logger}
}

func (p *postgresConnector) Name() string {
	return fmt.Sprintf("%s://%s/%s", p.cfg.Driver, p.cfg.Host, p.cfg.DBName)
}

func (p *postgresConnector) Connect(ctx context.Context) error {
	var dialector gorm.Dialector
	switch p.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(p.cfg.DSN())
	default:
		dialector = postgres.Open(p.cfg.DSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gorm_logger.Default.LogMode(gorm_logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", p.Name(), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql handle for %s: %w", p.Name(), err)
	}
	if p.cfg.MaxOpenConnection > 0 {
		sqlDB.SetMaxOpenConns(p.cfg.MaxOpenConnection)
	}
	if p.cfg.MaxIdealConnection > 0 {
		sqlDB.SetMaxIdleConns(p.cfg.MaxIdealConnection)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping %s: %w", p.Name(), err)
	}
	p.db = db
	p.logger.Infof("connected to %s", p.Name())
	return nil
}

func (p *postgresConnector) DB(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx)
}

func (p *postgresConnector) Migrate(ctx context.Context, models ...interface{}) error {
	if err := p.DB(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate %s: %w", p.Name(), err)
	}
	return nil
}

func (p *postgresConnector) IsConnected(ctx context.Context) bool {
	if p.db == nil {
		return false
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return false
	}
	return sqlDB.PingContext(ctx) == nil
}

func (p *postgresConnector) Disconnect(ctx context.Context) error {
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	p.logger.Infof("disconnecting %s", p.Name())
	return sqlDB.Close()
}

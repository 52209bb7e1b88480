package db

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ConnectDatabase opens a gorm connection for the given driver.
func ConnectDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return gdb, nil
}

// MigrateDatabase applies the embedded goose migrations.
func MigrateDatabase(gdb *gorm.DB, driver string, log *zap.SugaredLogger) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}

	stdLog, err := zap.NewStdLogAt(log.Desugar(), zapcore.DebugLevel)
	if err != nil {
		return fmt.Errorf("goose logger: %w", err)
	}
	goose.SetLogger(stdLog)
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(sqlDB)
	if err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}
	log.Infow("database migrated", "driver", driver, "version", version)
	return nil
}

// Open connects and migrates in one step.
func Open(driver, dsn string, log *zap.SugaredLogger) (*gorm.DB, error) {
	gdb, err := ConnectDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := MigrateDatabase(gdb, driver, log); err != nil {
		if sqlDB, cerr := gdb.DB(); cerr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return gdb, nil
}

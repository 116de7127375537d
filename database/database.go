package database

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"campusparking/config"
	"campusparking/logger"
)

// 連線重試設定
var (
	MaxRetries    = 5
	RetryInterval = 5 * time.Second
)

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Open 依 DB_DRIVER 開啟連線，失敗時重試，並設定連線池
func Open(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	log := logger.FromContext(ctx)

	// 根據環境設置日誌級別
	logLevel := gormlogger.Info
	if cfg.GinMode == "release" {
		logLevel = gormlogger.Warn
	}

	dial, err := dialector(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	for i := 0; i < MaxRetries; i++ {
		db, err = gorm.Open(dial, &gorm.Config{
			Logger: gormlogger.Default.LogMode(logLevel),
		})
		if err == nil {
			break
		}
		log.Warn("Failed to connect to database", "attempt", i+1, "max", MaxRetries, "error", err)
		if i < MaxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RetryInterval):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database after %d attempts: %w", MaxRetries, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// 記憶體資料庫每條連線各自獨立
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("Database initialized successfully with GORM", "driver", cfg.DBDriver)
	return db, nil
}

// Close 關閉底層連線
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

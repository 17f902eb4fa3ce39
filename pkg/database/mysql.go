package database

import (
	"fmt"
	"time"

	"go-pos/pkg/config"

	drv "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MysqlDSN builds the driver DSN for cfg.
func MysqlDSN(cfg config.MysqlConfig) string {
	dc := drv.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dc.DBName = cfg.DbName
	dc.ParseTime = true
	dc.Loc = time.Local
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

// InitMySQL opens the audit database. SQL is logged only at debug level.
func InitMySQL(cfg config.MysqlConfig, entry *log.Entry) (*gorm.DB, error) {
	level := logger.Warn
	if entry.Logger.IsLevelEnabled(log.DebugLevel) {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(MysqlDSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)

	entry.WithField("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)).Info("mysql connected")
	return db, nil
}

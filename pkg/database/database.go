// Package database 负责初始化关系型数据库与 Redis 连接。
package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meslek-atlasi/internal/config"
	"meslek-atlasi/pkg/log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Open 根据驱动名称打开一个 GORM 连接。
// sqlite 的 DSN 为 "memory" 时使用共享的内存数据库。
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite", "":
		if dsn == "memory" || dsn == "" {
			dsn = "file::memory:?cache=shared"
		} else if dir := filepath.Dir(dsn); dir != "." && dir != "/" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory '%s': %w", dir, err)
			}
		}
		// sqlite 需要显式开启外键约束，级联删除依赖于此
		dialector = sqlite.Open(withForeignKeys(dsn))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return gorm.Open(dialector, &gorm.Config{})
}

// InitDB 初始化数据库连接并配置连接池
func InitDB(cfg config.DatabaseConfig) {
	var err error
	DB, err = Open(cfg.Driver, cfg.DSN)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatal("failed to get sql.DB", err)
	}

	if cfg.Driver == "mysql" {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	} else {
		// sqlite 只允许单个写连接
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Infof("%s database connected successfully", cfg.Driver)
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

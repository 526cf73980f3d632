package db

import (
	"geochat/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect 打开（必要时创建）嵌入式 SQLite 数据库。
func Connect(path string) (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	// SQLite 只有单写者，限制连接数避免 database is locked。
	sqlDB.SetMaxOpenConns(1)
	return gdb, nil
}

// Migrate 自动建表（users、messages），表已存在则跳过。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.User{}, &models.Message{})
}

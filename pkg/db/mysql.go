package db

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"relaymesh/pkg/model"
)

// DSN builds the MySQL connection string. MYSQL_DSN wins outright;
// otherwise it is assembled from MYSQL_HOST, MYSQL_PORT, MYSQL_USER,
// MYSQL_PASS and MYSQL_DB.
func DSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	host := getenv("MYSQL_HOST", "127.0.0.1")
	port := getenv("MYSQL_PORT", "3306")
	user := getenv("MYSQL_USER", "root")
	pass := getenv("MYSQL_PASS", "")
	dbname := getenv("MYSQL_DB", "relaymesh")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", user, pass, host, port, dbname)
}

// Init connects to the authority's MySQL and runs migrations. The
// database itself must already exist; managed DSNs rarely grant CREATE
// DATABASE anyway.
func Init() (*gorm.DB, error) {
	_ = loadDotEnv()
	db, err := gorm.Open(mysql.Open(DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	if err := db.AutoMigrate(&model.User{}, &model.Project{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadDotEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		return godotenv.Load(".env")
	}
	return nil
}

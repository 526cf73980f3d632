package config

import (
	"errors"
	"os"
	"strconv"
)

type Config struct {
	Port         string
	DatabasePath string
	Env          string
	WSSendBuffer int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func Load() Config {
	port := getenv("APP_PORT", "8080")
	dbPath := getenv("DATABASE_PATH", "chat.db")
	env := getenv("APP_ENV", "dev")
	bufStr := getenv("WS_SEND_BUFFER", "256")
	buf, _ := strconv.Atoi(bufStr)
	if buf <= 0 {
		buf = 256
	}
	return Config{
		Port:         port,
		DatabasePath: dbPath,
		Env:          env,
		WSSendBuffer: buf,
	}
}

// Validate 在启动前检查配置是否完整。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("port required")
	}
	if cfg.DatabasePath == "" {
		return errors.New("database path required")
	}
	return nil
}

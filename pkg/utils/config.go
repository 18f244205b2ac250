package utils

import (
	"os"
	"strconv"
	"time"
)

type ServerConfig struct {
	Addr      string // HTTP listen address
	EventAddr string // TCP event feed address
}

func LoadServerConfig() ServerConfig {
	addr := os.Getenv("NOVELHUB_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	eventAddr := os.Getenv("NOVELHUB_EVENT_ADDR")
	if eventAddr == "" {
		eventAddr = ":7070"
	}

	return ServerConfig{Addr: addr, EventAddr: eventAddr}
}

type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt hash; empty disables admin login
	JWTSecret    string
	JWTIssuer    string
	JWTDuration  time.Duration
}

func LoadAdminConfig() AdminConfig {
	user := os.Getenv("NOVELHUB_ADMIN_USER")
	if user == "" {
		user = "admin"
	}

	secret := os.Getenv("NOVELHUB_JWT_SECRET")
	if secret == "" {
		// dev default (change for demo / production)
		secret = "dev-secret-change-me"
	}

	issuer := os.Getenv("NOVELHUB_JWT_ISSUER")
	if issuer == "" {
		issuer = "novelhub"
	}

	ttl := 24 * time.Hour
	if h := os.Getenv("NOVELHUB_JWT_TTL_HOURS"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Hour
		}
	}

	return AdminConfig{
		Username:     user,
		PasswordHash: os.Getenv("NOVELHUB_ADMIN_PASSWORD_HASH"),
		JWTSecret:    secret,
		JWTIssuer:    issuer,
		JWTDuration:  ttl,
	}
}

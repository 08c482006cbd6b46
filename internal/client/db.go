package client

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // Register SQL Server driver

	"github.com/AbdelilahOu/MssqlMcp/internal/config"
)

// DriverName is the database/sql driver registered by go-mssqldb that uses
// @p1-style positional parameters.
const DriverName = "sqlserver"

var passwordPattern = regexp.MustCompile(`(?i)(password=)(\{(?:[^}]|\}\})*\}|[^;]*)`)

// BuildConnString assembles an ODBC-style connection string for the native
// TDS driver. Values that would break the key=value;... grammar are wrapped
// in braces with '}' doubled.
func BuildConnString(cfg *config.Config) string {
	encrypt := "false"
	if cfg.Encrypt {
		encrypt = "true"
	}

	parts := []string{
		"server=" + quoteValue(cfg.Server),
		"port=" + strconv.Itoa(cfg.Port),
		"database=" + quoteValue(cfg.Database),
		"user id=" + quoteValue(cfg.User),
		"password=" + quoteValue(cfg.Password),
		"encrypt=" + encrypt,
		"TrustServerCertificate=" + strconv.FormatBool(cfg.TrustServerCertificate),
		"ApplicationIntent=ReadOnly",
		// Reconnects are handled by the gateway, not by database/sql retries.
		"disableretry=true",
	}
	if cfg.AppName != "" {
		parts = append(parts, "app name="+quoteValue(cfg.AppName))
	}
	if cfg.ConnectTimeout > 0 {
		parts = append(parts, "connection timeout="+strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}

	return "odbc:" + strings.Join(parts, ";")
}

func quoteValue(v string) string {
	if v == "" {
		return "{}"
	}
	if strings.ContainsAny(v, ";{}= \t") || strings.TrimSpace(v) != v {
		return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
	}
	return v
}

// Redact masks the password of a connection string so it can be logged.
func Redact(connString string) string {
	return passwordPattern.ReplaceAllString(connString, "${1}***")
}

// Open opens a handle limited to a single connection and verifies it with a
// ping before handing it out.
func Open(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(DriverName, BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", DriverName, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Target(), err)
	}

	return db, nil
}

// Opener binds cfg so callers can reopen the handle without holding on to
// the configuration themselves.
func Opener(cfg *config.Config) func(ctx context.Context) (*sql.DB, error) {
	return func(ctx context.Context) (*sql.DB, error) {
		return Open(ctx, cfg)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/oauthcore-oss/oauthcore/event"
	"github.com/oauthcore-oss/oauthcore/server"
	"github.com/oauthcore-oss/oauthcore/storage"
	"github.com/oauthcore-oss/oauthcore/storage/memory"
	oasql "github.com/oauthcore-oss/oauthcore/storage/sql"
	"github.com/oauthcore-oss/oauthcore/token"
)

func commandServe() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the OAuth 2.0 authorization server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := parseLevel(cfg.Logger.Level)
	if err != nil {
		return err
	}
	logger, err := newLogger(level, cfg.Logger.Format)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	emitter := event.NewAsyncEmitter(256, logger)
	defer emitter.Close()

	srv, err := server.New(server.Config{
		IssuerURL:                    cfg.Issuer,
		SupportedScopes:              cfg.OAuth2.SupportedScopes,
		EnabledGrants:                cfg.OAuth2.enabledGrants(),
		AllowPlainPKCE:               cfg.OAuth2.AllowPlainPKCE,
		PKCERequiredForPublicClients: cfg.OAuth2.pkceRequiredForPublicClients(),
		AuthCodeTTL:                  cfg.Expiry.AuthCode,
		AllowedOrigins:               cfg.Web.AllowedOrigins,
		AllowedHeaders:               cfg.Web.AllowedHeaders,
	}, store, token.Config{
		Issuer:        cfg.Issuer,
		SigningSecret: []byte(cfg.OAuth2.JWTSecret),
		AccessTTL:     cfg.Expiry.AccessToken,
		RefreshTTL:    cfg.Expiry.RefreshToken,
		RotateRefresh: cfg.OAuth2.RotateRefresh,
		OpaqueAccess:  cfg.OAuth2.OpaqueAccess,
	}, emitter, logger)
	if err != nil {
		return fmt.Errorf("construct server: %w", err)
	}

	addr := cfg.Web.HTTPAddr
	if addr == "" {
		addr = ":5556"
	}
	logger.Info("oauthd listening", "addr", addr, "issuer", cfg.Issuer)
	return http.ListenAndServe(addr, srv.Router())
}

func openStorage(cfg Storage, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", "memory":
		return memory.New(nil), nil
	case "postgres", "sqlite3":
		db, err := oasql.Open(oasql.Config{Driver: cfg.Type, DSN: cfg.DSN}, logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

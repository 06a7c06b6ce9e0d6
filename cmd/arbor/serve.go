package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/server"
	"github.com/aretw0/arbor/pkg/adapters/httpsvc"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/middleware"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/engine"
	"github.com/aretw0/arbor/pkg/form"
	"github.com/aretw0/arbor/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve <definition.json>",
	Short: "Serve a form over HTTP",
	Long:  `Compiles a form definition and serves its pages, backed by the configured session store and collaborator services.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		listen, _ := cmd.Flags().GetString("listen")

		if err := runServe(args[0], configPath, listen); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Listen address (overrides config)")
}

func runServe(definitionPath, configPath, listen string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}

	logger := logging.New(slog.LevelInfo)

	model, err := loadModel(definitionPath)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(cfg.Session, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	services := engine.Services{
		Store:       store,
		Logger:      logger,
		Notify:      engine.NotifyConfig{TemplateID: cfg.Notify.TemplateID},
		DownloadURL: cfg.DownloadURL,
	}
	if cfg.Uploader.URL != "" {
		services.Uploader = httpsvc.NewUploader(cfg.Uploader.URL)
	}
	if cfg.Submission.URL != "" {
		services.Submitter = httpsvc.NewSubmitter(cfg.Submission.URL)
	}

	slug := formSlug(definitionPath)
	srv := server.New(model, slug, services, server.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving %q on %s (form: /%s)\n", model.Name(), cfg.Listen, slug)
	return srv.Run(ctx, cfg.Listen)
}

func loadModel(path string) (*engine.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := form.Parse(data)
	if err != nil {
		return nil, err
	}
	return engine.NewModel(def)
}

func buildStore(cfg config.SessionConfig, logger *slog.Logger) (ports.SessionStore, func(), error) {
	var store ports.SessionStore
	closeStore := func() {}

	switch cfg.Backend {
	case "redis":
		redisStore := redis.New(cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB, redis.WithTTL(cfg.TTL))
		store, closeStore = redisStore, func() { _ = redisStore.Close() }
	case "", "memory":
		store = memory.New()
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}

	// Audit wraps encryption so debug logs show the logical answers,
	// masked, rather than the ciphertext envelope.
	var middlewares []middleware.Middleware
	if len(cfg.MaskPatterns) > 0 {
		middlewares = append(middlewares, middleware.NewAudit(logger, cfg.MaskPatterns))
	}
	if cfg.EncryptionKey != "" {
		encryption, err := encryptionConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		middlewares = append(middlewares, middleware.NewEncryption(encryption))
	}
	return middleware.Chain(store, middlewares...), closeStore, nil
}

func encryptionConfig(cfg config.SessionConfig) (middleware.EncryptionConfig, error) {
	active, err := decodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("invalid session encryption key: %w", err)
	}
	fallbacks := make([][]byte, 0, len(cfg.FallbackKeys))
	for _, k := range cfg.FallbackKeys {
		decoded, err := decodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("invalid session fallback key: %w", err)
		}
		fallbacks = append(fallbacks, decoded)
	}
	return middleware.EncryptionConfig{ActiveKey: active, FallbackKeys: fallbacks}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}

// formSlug derives the route slug from the definition filename.
func formSlug(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

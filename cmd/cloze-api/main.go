package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zmuhls/cloze-reader/backend/internal/config"
	"github.com/zmuhls/cloze-reader/backend/internal/database"
	"github.com/zmuhls/cloze-reader/backend/internal/hub"
	"github.com/zmuhls/cloze-reader/backend/internal/leaderboard"
	"github.com/zmuhls/cloze-reader/backend/internal/logging"
	"github.com/zmuhls/cloze-reader/backend/internal/server"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cloze-api",
		Short: "Cloze Reader leaderboard backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("hub-repo-id", defaults.GetString("hub.repo_id"), "Hub repository id (username/repo-name)")
	cmd.PersistentFlags().String("hub-base-url", defaults.GetString("hub.base_url"), "Hub base URL")
	cmd.PersistentFlags().String("hub-repo-type", defaults.GetString("hub.repo_type"), "Hub repository type (space, dataset, model)")
	cmd.PersistentFlags().String("board-key", defaults.GetString("board.key"), "Leaderboard document key within the repository")
	cmd.PersistentFlags().String("store-backend", defaults.GetString("store.backend"), "Document store backend (hub or local)")
	cmd.PersistentFlags().String("local-db-path", defaults.GetString("store.local_path"), "SQLite path for the local backend")
	cmd.PersistentFlags().String("static-dir", defaults.GetString("http.static_dir"), "Directory of game assets to serve (empty disables)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().Int("timeout-seconds", defaults.GetInt("http.timeout_seconds"), "Store request timeout in seconds")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "hub.repo_id", "hub-repo-id")
	bindFlag(cmd, "hub.base_url", "hub-base-url")
	bindFlag(cmd, "hub.repo_type", "hub-repo-type")
	bindFlag(cmd, "board.key", "board-key")
	bindFlag(cmd, "store.backend", "store-backend")
	bindFlag(cmd, "store.local_path", "local-db-path")
	bindFlag(cmd, "http.static_dir", "static-dir")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "http.timeout_seconds", "timeout-seconds")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store, err := buildStore(appConfig, logger)
	if err != nil {
		return err
	}

	if !store.CanWrite() {
		logger.Warn("no write credential configured, leaderboard is read-only")
	}

	boardService, err := leaderboard.NewService(leaderboard.ServiceConfig{
		Store:  store,
		Key:    appConfig.BoardKey,
		Clock:  time.Now,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Leaderboard: boardService,
		Logger:      logger,
		StaticDir:   appConfig.StaticDir,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("store_backend", appConfig.StoreBackend))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildStore(appConfig config.AppConfig, logger *zap.Logger) (hub.Store, error) {
	switch appConfig.StoreBackend {
	case config.StoreBackendLocal:
		db, err := database.OpenSQLite(appConfig.LocalDBPath, logger)
		if err != nil {
			return nil, err
		}
		return database.NewLocalStore(db, logger)
	case config.StoreBackendHub:
		return hub.NewClient(hub.ClientConfig{
			BaseURL:  appConfig.HubBaseURL,
			RepoID:   appConfig.HubRepoID,
			RepoType: appConfig.HubRepoType,
			Revision: appConfig.HubRevision,
			Token:    appConfig.HubToken,
			Timeout:  appConfig.RequestTimeout,
			Logger:   logger,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", appConfig.StoreBackend)
	}
}

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

	"audioguide/model"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "audioguide",
	Short: "audioguide serves a catalog of audio guides and their tracks.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(configPath)
		if err != nil {
			return err
		}
		config = cfg
		return setupLogging(cfg.Log)
	},
	SilenceUsage: true,
}

// config is loaded before any command runs.
var config *AudioguideConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Long:  "Print the effective configuration (defaults, config file and environment) as YAML. Redirect it to a file to start a new config.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Write(cmd.OutOrStdout())
	},
}

var importOpts struct {
	title       string
	description string
	category    string
}

var importCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Create a guide from a directory of audio files",
	Long: `Create one guide with a track per .mp3, .wav or .m4a file found in DIR.
Tracks are ordered by file path; titles come from the files' tags or names.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return importDir(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")

	importCmd.Flags().StringVar(&importOpts.title, "title", "", "guide title (default: the directory name)")
	importCmd.Flags().StringVar(&importOpts.description, "description", "", "guide description")
	importCmd.Flags().StringVar(&importOpts.category, "category", "", "guide category")
	_ = importCmd.MarkFlagRequired("category")

	rootCmd.AddCommand(serveCmd, configCmd, importCmd)
}

func serve(ctx context.Context) error {
	store, err := openStore(config.Store)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer store.Close()

	audio, local, err := openAudio(config.Audio)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	srv := &http.Server{
		Addr:    config.HttpListenAddr,
		Handler: MakeRouter(store, audio, local),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", srv.Addr).
			WithField("store", config.Store.Driver).
			WithField("audio", config.Audio.Backend).
			Info("serve: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("serve: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func importDir(ctx context.Context, dir string) error {
	store, err := openStore(config.Store)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer store.Close()

	_, local, err := openAudio(config.Audio)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if local == nil {
		return fmt.Errorf("import: needs the %q audio backend", AudioBackendFS)
	}

	tracks, err := local.TracksFromDir(dir)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	title := importOpts.title
	if title == "" {
		title = model.TitleFromPath(dir)
	}
	guide := model.Guide{
		Title:       title,
		Description: importOpts.description,
		Category:    importOpts.category,
	}

	id, err := store.CreateGuide(ctx, guide, tracks)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}

	logger.WithField("guideID", id).
		WithField("tracks", len(tracks)).
		WithField("dir", dir).
		Info("import: guide created")
	return nil
}

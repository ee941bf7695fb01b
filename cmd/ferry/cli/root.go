// Package cli implements the ferry command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/meigma/ferry"
	"github.com/meigma/ferry/cmd/ferry/cli/config"
	"github.com/meigma/ferry/internal/staging"
)

// Build information set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	cfgFile string
	verbose bool
)

// Process-wide state, set up in PersistentPreRunE.
var (
	cfg      *config.Config
	logger   = slog.New(slog.DiscardHandler)
	logFile  io.Closer
	registry *ferry.Registry
)

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Relay files to GoFile with progress reporting",
	Long: `Ferry uploads local files to GoFile, either one by one or folded into a
single zip archive, and prints the download links when done.

Files are staged in a private directory while they are processed and are
always removed afterwards, whatever the outcome.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/ferry/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().String("progress", "auto", "Progress display: auto, tty or plain")
	//nolint:errcheck // flag is defined above
	viper.BindPFlag("progress", rootCmd.PersistentFlags().Lookup("progress"))
	//nolint:errcheck // flag is defined above
	rootCmd.RegisterFlagCompletionFunc("progress", completeProgressModes)
	rootCmd.Version = version
}

// Execute runs the root command. Staged files left by any job are removed
// before it returns.
func Execute() error {
	defer shutdown()

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
	}
	return err
}

// setup loads configuration and builds the logger and staging registry.
func setup(_ *cobra.Command, _ []string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	cfg = loaded

	l, closer, err := newLogger(cfg.Log, verbose)
	if err != nil {
		return err
	}
	logger = l
	logFile = closer
	registry = ferry.NewRegistry(logger)
	return nil
}

func shutdown() {
	if registry != nil {
		registry.ReleaseAll()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

// loadConfig reads .env, the config file and FERRY_* environment variables.
func loadConfig() (*config.Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	config.SetDefaults(viper.GetViper())
	viper.SetEnvPrefix("FERRY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := config.Dir()
		if err != nil {
			return nil, err
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return config.Load(viper.GetViper())
}

// newLogger builds the CLI logger. Output goes to stderr and, when
// log.file is set, to a rotating file as well.
func newLogger(lc config.LogConfig, debug bool) (*slog.Logger, io.Closer, error) {
	level := slog.LevelWarn
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, nil, fmt.Errorf("invalid log.level %q: %w", lc.Level, err)
		}
	}
	if debug {
		level = slog.LevelDebug
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if lc.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		w = io.MultiWriter(os.Stderr, rotator)
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), closer, nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), closer, nil
}

// prepareStaging purges stale staged files when configured.
func prepareStaging() {
	if !cfg.Staging.PurgeOnStart {
		return
	}
	if _, err := staging.PurgeDir(cfg.Staging.Dir, cfg.Staging.PurgeAge, logger); err != nil {
		logger.Warn("failed to purge staging directory", "path", cfg.Staging.Dir, "error", err)
	}
}

// newPipeline creates a pipeline bound to the process registry.
func newPipeline(out io.Writer) (*ferry.Pipeline, error) {
	prepareStaging()

	opts := []ferry.Option{
		ferry.WithLogger(logger),
		ferry.WithRegistry(registry),
		ferry.WithStagingDir(cfg.Staging.Dir),
		ferry.WithHostingURLs(cfg.Hosting.APIURL, cfg.Hosting.UploadURL),
		ferry.WithUploadTimeout(cfg.Hosting.Timeout),
		ferry.WithUserAgent("ferry/" + version),
		ferry.WithProgressInterval(cfg.ProgressInterval),
		ferry.WithStateHook(func(jobID string, s ferry.State) {
			logger.Debug("state", "job", jobID, "state", s.String())
		}),
	}
	return ferry.NewPipeline(localSource{}, newConsoleMessenger(out, shouldRewrite()), opts...)
}

// signalContext returns a context that is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// formatError converts ferry errors to user-friendly messages.
func formatError(err error) string {
	if err == nil {
		return ""
	}

	var failed *jobsFailedError
	switch {
	case errors.As(err, &failed):
		return fmt.Sprintf("Error: %v", err)
	case errors.Is(err, context.Canceled):
		return "Error: operation canceled"
	case errors.Is(err, ferry.ErrMissingName),
		errors.Is(err, ferry.ErrNoSourceFound),
		errors.Is(err, ferry.ErrServerUnavailable),
		errors.Is(err, ferry.ErrSizeLimitExceeded):
		return "Error: " + ferry.Describe(err)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

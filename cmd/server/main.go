package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/songbox/internal/server"
	"github.com/openmined/songbox/internal/server/upload"
	"github.com/openmined/songbox/internal/utils"
	"github.com/openmined/songbox/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix   = "SONGBOX"
	logFileName = "server.log"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "songbox-server",
		Short:   "SongBox resumable upload server",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			closeLog, err := setupLogger(cfg.LogDir)
			if err != nil {
				return err
			}
			defer closeLog()

			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			defer slog.Info("Bye!")
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("config", "f", "", "Path to a YAML or JSON config file")
	cmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	cmd.Flags().StringP("cert", "c", "", "Path to the certificate file")
	cmd.Flags().StringP("key", "k", "", "Path to the key file")
	cmd.Flags().StringP("data-dir", "d", server.DefaultDataDir, "Directory for staging files, objects and the session index")
	cmd.Flags().String("log-dir", server.DefaultLogDir, "Directory for the server log file, empty to log to stdout only")
	return cmd
}

func main() {
	slog.SetDefault(slog.New(newConsoleHandler(os.Stdout)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file, SONGBOX_* env vars and flags,
// in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	flags := map[string]string{
		"http.addr":      "bind",
		"http.cert_file": "cert",
		"http.key_file":  "key",
		"data_dir":       "data-dir",
		"log_dir":        "log-dir",
	}
	for key, name := range flags {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return nil, err
		}
	}

	cfg := &server.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key, so AutomaticEnv can resolve nested keys
// that appear in no config file.
func setDefaults(v *viper.Viper) {
	up := upload.DefaultConfig()

	v.SetDefault("http.addr", server.DefaultAddr)
	v.SetDefault("http.cert_file", "")
	v.SetDefault("http.key_file", "")
	v.SetDefault("http.rate_limit", server.DefaultRateLimit)
	v.SetDefault("http.read_timeout", server.DefaultReadTimeout)
	v.SetDefault("http.idle_timeout", server.DefaultIdleTimeout)

	v.SetDefault("blob.bucket_name", "")
	v.SetDefault("blob.region", "")
	v.SetDefault("blob.access_key", "")
	v.SetDefault("blob.secret_key", "")
	v.SetDefault("blob.endpoint", "")
	v.SetDefault("blob.use_accelerate", false)
	v.SetDefault("blob.local_dir", "")

	v.SetDefault("upload.staging_dir", "")
	v.SetDefault("upload.max_chunk_size", up.MaxChunkSize)
	v.SetDefault("upload.max_upload_size", up.MaxUploadSize)
	v.SetDefault("upload.session_timeout", up.SessionTimeout)
	v.SetDefault("upload.retention", up.Retention)
	v.SetDefault("upload.reap_interval", up.ReapInterval)
	v.SetDefault("upload.allowed_extensions", up.AllowedExtensions)
	v.SetDefault("upload.allowed_content_types", up.AllowedContentTypes)

	v.SetDefault("data_dir", server.DefaultDataDir)
	v.SetDefault("log_dir", server.DefaultLogDir)
}

func newConsoleHandler(w *os.File) slog.Handler {
	return tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(w.Fd()),
	})
}

// setupLogger tees the console log into a numbered log file under logDir
func setupLogger(logDir string) (func(), error) {
	if logDir == "" {
		return func() {}, nil
	}

	logFile := filepath.Join(logDir, logFileName)
	if err := utils.EnsureParent(logFile); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	lines := utils.NewLineWriter(file)
	fileHandler := slog.NewTextHandler(lines, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(newConsoleHandler(os.Stdout), fileHandler)))

	return func() {
		slog.SetDefault(slog.New(newConsoleHandler(os.Stdout)))
		closeAll(lines, file)
	}, nil
}

func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}

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
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/songbox/internal/songsdk"
	"github.com/openmined/songbox/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	home, _          = os.UserHomeDir()
	defaultConfigDir = filepath.Join(home, ".songbox")
	defaultResumeDir = filepath.Join(defaultConfigDir, "resume")
	configFileName   = "config"
)

// clientConfig is the merged view of flags, SONGBOX_* env vars and the config file
type clientConfig struct {
	Path       string        `mapstructure:"-"`
	ServerURL  string        `mapstructure:"server_url"`
	ResumeDir  string        `mapstructure:"resume_dir"`
	ChunkSize  int64         `mapstructure:"chunk_size"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "songbox",
		Short:         "SongBox CLI for resumable audio uploads",
		Version:       version.Detailed(),
		SilenceErrors: true,
	}

	cmd.PersistentFlags().SortFlags = false
	cmd.PersistentFlags().StringP("config", "c", "", "SongBox config file")
	cmd.PersistentFlags().StringP("server", "s", songsdk.DefaultBaseURL, "SongBox server URL")
	cmd.PersistentFlags().String("resume-dir", defaultResumeDir, "Directory for upload resume files")
	cmd.PersistentFlags().Int64("chunk-size", songsdk.DefaultChunkSize, "Bytes per upload chunk")
	cmd.PersistentFlags().Int("max-retries", songsdk.DefaultMaxRetries, "Attempts per chunk before giving up")
	cmd.PersistentFlags().Duration("timeout", time.Minute, "Per request timeout")

	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := execute(ctx, rootCmd, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the process exit code
func execute(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, red.Render("Error:"), err)
		return 1
	}
	return 0
}

func loadConfig(cmd *cobra.Command) (*clientConfig, error) {
	v := viper.New()

	if cmd.Flag("config").Changed {
		v.SetConfigFile(cmd.Flag("config").Value.String())
	} else {
		v.AddConfigPath(defaultConfigDir)
		v.AddConfigPath(filepath.Join(home, ".config", "songbox"))
		v.SetConfigName(configFileName)
		v.SetConfigType("json")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	flags := map[string]string{
		"server_url":  "server",
		"resume_dir":  "resume-dir",
		"chunk_size":  "chunk-size",
		"max_retries": "max-retries",
		"timeout":     "timeout",
	}
	for key, name := range flags {
		if err := v.BindPFlag(key, cmd.Flag(name)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix("SONGBOX")
	v.AutomaticEnv()

	cfg := &clientConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	cfg.Path = v.ConfigFileUsed()

	if cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	return cfg, nil
}

func newSDK(cfg *clientConfig) (*songsdk.SongSDK, error) {
	return songsdk.New(&songsdk.Config{
		BaseURL:    cfg.ServerURL,
		RetryCount: songsdk.DefaultRetryCount,
		Timeout:    cfg.Timeout,
	})
}

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/lexrag/internal/cli"
	"github.com/hyperjump/lexrag/internal/config"
	"github.com/hyperjump/lexrag/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/lexrag/config.yaml"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	debug      bool
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "lexrag",
		Short: "Structure-aware chunking and retrieval for legal acts",
		Long: `lexrag builds a hierarchical fragment index of legal acts, splits every
fragment into chunks that fit an embedding model and serves hybrid search
over the resulting chunk records.`,
		SilenceUsage: true,
		Version:      version,
	}
	cmd.SetVersionTemplate(fmt.Sprintf("lexrag %s\n", version))

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVarP(&opts.output, "output", "o", string(cli.OutputText), "output format: text or json")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newChunkCmd(opts),
		newInspectCmd(opts),
		newSearchCmd(opts),
		newDeleteCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads config from path. When path is the default, ./config.yaml
// wins if it exists; when neither exists the built-in defaults are used.
// It returns the path actually loaded, or "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			local := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(local); err == nil {
				cfg, err := config.Load(local)
				if err != nil {
					return nil, "", err
				}
				return cfg, local, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config, builds the logger and parses the output format.
// Quiet commands only log warnings unless debug is on.
func (o *rootOptions) setup(quiet bool) (*config.Config, *zap.Logger, cli.OutputFormat, error) {
	format, err := cli.ParseFormat(o.output)
	if err != nil {
		return nil, nil, "", err
	}
	cfg, loaded, err := loadConfig(o.configPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to create logger: %w", err)
	}
	if quiet && !debug {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}
	logger.Debug("config loaded", zap.String("config_path", loaded), zap.Bool("debug", debug))
	return cfg, logger, format, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lexrag version %s\n", version)
		},
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/pinboard/internal/paths"
	"github.com/mesh-intelligence/pinboard/internal/sqlite"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

// configFile holds the structure written to config.yaml on init.
type configFile struct {
	Backend  string `yaml:"backend"`
	DataDir  string `yaml:"data_dir,omitempty"`
	User     string `yaml:"user"`
	LogLevel string `yaml:"log_level"`
	Notifier string `yaml:"notifier"`
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize pinboard storage",
		Long:  "Create the configuration and data directories, write a default config.yaml\nif none exists, then initialize the storage backend.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysError("create config directory: %w", err)
	}

	s, err := resolveSettings()
	if err != nil {
		return err
	}
	if err := writeConfigIfMissing(paths.ConfigFile(configDir), s); err != nil {
		return sysError("write config: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), s)
	if err != nil {
		return err
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(logger))
	if err := backend.Attach(s.Store); err != nil {
		return sysError("initialize storage: %w", err)
	}
	if err := backend.Detach(); err != nil {
		return sysError("finalize storage: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pinboard initialized in %s\n", s.DataDir)
	return nil
}

// writeConfigIfMissing creates config.yaml from the resolved settings if the
// file does not exist. An existing file is left untouched.
func writeConfigIfMissing(path string, s *settings) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	cfg := configFile{
		Backend:  types.BackendSQLite,
		User:     s.User,
		LogLevel: s.LogLevel,
		Notifier: s.Store.GetNotifier(),
	}
	if flags.dataDir != "" {
		cfg.DataDir = s.DataDir
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

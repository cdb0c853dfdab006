package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/pinboard/internal/paths"
	"github.com/mesh-intelligence/pinboard/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "PINBOARD"

	cfgKeyBackend      = "backend"
	cfgKeyDataDir      = "data_dir"
	cfgKeyUser         = "user"
	cfgKeyLogLevel     = "log_level"
	cfgKeyNotifier     = "notifier"
	cfgKeyRedisURL     = "redis_url"
	cfgKeyRedisChannel = "redis_channel"
	cfgKeyPollInterval = "poll_interval"
	cfgKeyWriteTimeout = "write_timeout"
	cfgKeyListenAddr   = "listen_addr"

	defaultUser         = "local"
	defaultLogLevel     = "info"
	defaultWriteTimeout = 10 * time.Second
	defaultListenAddr   = ":8080"
)

// settings is the resolved configuration of one command run.
type settings struct {
	ConfigDir    string
	DataDir      string
	User         string
	LogLevel     string
	WriteTimeout time.Duration
	ListenAddr   string
	Store        types.Config
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error. Every key can be overridden by a PINBOARD_<KEY> variable.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyUser, defaultUser)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyNotifier, types.NotifierLocal)
	v.SetDefault(cfgKeyRedisChannel, types.DefaultChannel)
	v.SetDefault(cfgKeyWriteTimeout, defaultWriteTimeout)
	v.SetDefault(cfgKeyListenAddr, defaultListenAddr)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// resolveSettings loads configuration and applies the global flags to it.
func resolveSettings() (*settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return nil, sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return nil, userError(err)
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, sysError("resolve data dir: %w", err)
	}

	s := &settings{
		ConfigDir:    configDir,
		DataDir:      dataDir,
		User:         v.GetString(cfgKeyUser),
		LogLevel:     v.GetString(cfgKeyLogLevel),
		WriteTimeout: v.GetDuration(cfgKeyWriteTimeout),
		ListenAddr:   v.GetString(cfgKeyListenAddr),
		Store: types.Config{
			Backend:      v.GetString(cfgKeyBackend),
			DataDir:      dataDir,
			Notifier:     v.GetString(cfgKeyNotifier),
			RedisURL:     v.GetString(cfgKeyRedisURL),
			RedisChannel: v.GetString(cfgKeyRedisChannel),
			PollInterval: v.GetDuration(cfgKeyPollInterval),
		},
	}
	if flags.user != "" {
		s.User = flags.user
	}
	if err := s.Store.Validate(); err != nil {
		return nil, userError(fmt.Errorf("config: %w", err))
	}
	return s, nil
}

// newLogger builds the logger for a command run. A true DEBUG variable or
// --verbose forces debug level; otherwise log_level applies.
func newLogger(w io.Writer, s *settings) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(w)
	logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	level, err := log.ParseLevel(strings.TrimSpace(s.LogLevel))
	if err != nil {
		return nil, userError(fmt.Errorf("config: %w", err))
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); flags.verbose || (err == nil && dbg) {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger, nil
}

package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	"github.com/TrainProtocol/swapd/internal/infrastructure/entropy"
	"github.com/TrainProtocol/swapd/pkg/hashlock"
)

type Config struct {
	Datadir  string `mapstructure:"DATADIR" envDefault:"swapd" envInfo:"Data directory for swapd state"`
	LogLevel uint32 `mapstructure:"LOG_LEVEL" envDefault:"4" envInfo:"Log verbosity (higher = more verbose)"`

	SolverURL string `mapstructure:"SOLVER_URL" envDefault:"" envInfo:"Solver API base URL (e.g. https://api.solver.example)"`
	SolverID  string `mapstructure:"SOLVER_ID" envDefault:"" envInfo:"Solver identifier used in API paths"`

	PollInterval        uint32 `mapstructure:"POLL_INTERVAL" envDefault:"5" envInfo:"Swap refresh interval in seconds"`
	TimelockGrace       uint32 `mapstructure:"TIMELOCK_GRACE" envDefault:"5" envInfo:"Grace period after timelock before expiry fires, in seconds"`
	ManualClaimAfter    uint32 `mapstructure:"MANUAL_CLAIM_AFTER" envDefault:"30" envInfo:"Window before the manual-claim fallback opens, in seconds"`
	LightClientAttempts uint32 `mapstructure:"LIGHT_CLIENT_ATTEMPTS" envDefault:"15" envInfo:"Light client read attempts before giving up"`
	LightClientDelay    uint32 `mapstructure:"LIGHT_CLIENT_DELAY" envDefault:"5" envInfo:"Delay between light client read attempts, in seconds"`

	NoAutoRelayNetworks string `mapstructure:"NO_AUTO_RELAY_NETWORKS" envDefault:"" envInfo:"Comma-separated networks requiring a user-triggered destination claim"`

	EntropyType     string `mapstructure:"ENTROPY_TYPE" envDefault:"env" envInfo:"Entropy source type: env | file"`
	Entropy         string `mapstructure:"ENTROPY" envDefault:"" envInfo:"Hex-encoded wallet-bound entropy (if using env source)"`
	EntropyFilePath string `mapstructure:"ENTROPY_FILE_PATH" envDefault:"" envInfo:"Path to hex-encoded entropy file (if using file source)"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SWAPD")
	v.AutomaticEnv()

	if err := setDefaultConfig(v); err != nil {
		return nil, fmt.Errorf("error setting default config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %v", err)
	}

	if err := config.initDatadir(); err != nil {
		return nil, fmt.Errorf("error initializing data directory: %w", err)
	}

	return &config, nil
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Config) TimelockGraceDuration() time.Duration {
	return time.Duration(c.TimelockGrace) * time.Second
}

func (c *Config) ManualClaimAfterDuration() time.Duration {
	return time.Duration(c.ManualClaimAfter) * time.Second
}

func (c *Config) LightClientDelayDuration() time.Duration {
	return time.Duration(c.LightClientDelay) * time.Second
}

// NoAutoRelaySet parses the comma-separated network list into a lookup set.
func (c *Config) NoAutoRelaySet() map[string]bool {
	set := make(map[string]bool)
	for _, network := range strings.Split(c.NoAutoRelayNetworks, ",") {
		network = strings.TrimSpace(network)
		if network != "" {
			set[network] = true
		}
	}
	return set
}

// EntropyService builds the configured wallet entropy source.
func (c *Config) EntropyService() (hashlock.EntropySource, error) {
	switch c.EntropyType {
	case "env":
		return entropy.NewEnvService(c.Entropy)
	case "file":
		return entropy.NewFileService(c.EntropyFilePath)
	default:
		return nil, fmt.Errorf("unknown entropy type: %s", c.EntropyType)
	}
}

func (c *Config) initDatadir() error {
	if c.Datadir == "swapd" {
		c.Datadir = appDatadir("swapd", false)
	}
	return makeDirectoryIfNotExists(c.Datadir)
}

func setDefaultConfig(v *viper.Viper) error {
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := f.Tag.Get("mapstructure")
		def := f.Tag.Get("envDefault")
		if def != "" {
			v.SetDefault(key, def)
		}
		err := v.BindEnv(key)
		if err != nil {
			return fmt.Errorf("error binding env variable for key %s: %w", key, err)
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

// appDatadir returns an operating system specific directory to be used for
// storing application data.
func appDatadir(appName string, roaming bool) string {
	if appName == "" || appName == "." {
		return "."
	}

	appName = strings.TrimPrefix(appName, ".")
	appNameUpper := string(unicode.ToUpper(rune(appName[0]))) + appName[1:]
	appNameLower := string(unicode.ToLower(rune(appName[0]))) + appName[1:]

	var homeDir string
	usr, err := user.Current()
	if err == nil {
		homeDir = usr.HomeDir
	}
	if err != nil || homeDir == "" {
		homeDir = os.Getenv("HOME")
	}

	goos := runtime.GOOS
	switch goos {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if roaming || appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}

	case "darwin":
		if homeDir != "" {
			return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
		}

	case "plan9":
		if homeDir != "" {
			return filepath.Join(homeDir, appNameLower)
		}

	default:
		if homeDir != "" {
			return filepath.Join(homeDir, "."+appNameLower)
		}
	}

	return "."
}

// Package toml loads camlink settings from camlink.toml, CAMLINK_* environment variables
// and bound command line flags, and writes starter config files.
package toml

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "camlink"
	configType = "toml"
	configDir  = "camlink"
	envPrefix  = "CAMLINK"

	// ConfigFileKey names an explicit config file path; a missing explicit file is an error.
	ConfigFileKey = "config"

	LinkDriverKey      = "link.driver"
	LinkDeviceKey      = "link.device"
	LinkBaudKey        = "link.baud"
	SessionTimeoutKey  = "session.timeout_ms"
	AutoEnabledKey     = "auto.enabled"
	AutoPeriodKey      = "auto.period_ms"
	AutoFramesKey      = "auto.frames"
	AutoFastKey        = "auto.fast"
	LogLevelKey        = "log.level"
	LogFileKey         = "log.file"
	InfluxURLKey       = "telemetry.influx.url"
	InfluxTokenKey     = "telemetry.influx.token"
	InfluxTokenRefKey  = "telemetry.influx.token_ref"
	InfluxDatabaseKey  = "telemetry.influx.database"
	InfluxMeasureKey   = "telemetry.influx.measurement"
	versionKey         = "version"
	defaultDevice      = "/dev/ttyUSB0"
	defaultMeasurement = "camlink_exchange"
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	Link    domain.LinkConfig
	Timeout time.Duration
	Auto    AutoSettings
	Log     LogSettings
	Influx  InfluxSettings
	// File is the config file that was read, empty when none was found.
	File string
}

type AutoSettings struct {
	Enabled bool
	Period  time.Duration
	Frames  int
	Fast    bool
}

type LogSettings struct {
	Level string
	File  string
}

type InfluxSettings struct {
	URL   string
	Token string
	// TokenRef names a pass entry or a file under the secrets directory holding the
	// token. It is used when Token is empty.
	TokenRef    string
	Database    string
	Measurement string
}

// Enabled reports whether exchange telemetry has somewhere to go.
func (s InfluxSettings) Enabled() bool {
	return s.URL != "" && s.Database != ""
}

func Defaults() Settings {
	return Settings{
		Link:    domain.LinkConfig{Driver: domain.DriverBugst, Device: defaultDevice, Baud: domain.DefaultBaud},
		Timeout: domain.DefaultTimeout,
		Auto: AutoSettings{
			Period: domain.DefaultAutoPeriod,
			Frames: domain.DefaultFrames,
		},
		Log:    LogSettings{Level: "info"},
		Influx: InfluxSettings{Measurement: defaultMeasurement},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/camlink/camlink.toml, falling back to
// ~/.config/camlink/camlink.toml.
func DefaultPath() (string, error) {
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configName+"."+configType), nil
}

// SecretsDir is where file-backed secret references are resolved.
func SecretsDir() (string, error) {
	dir, err := configHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "secrets"), nil
}

func configHome() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDir), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", configDir), nil
}

// Load resolves settings from cfg. Defaults, the config file and CAMLINK_* variables
// are layered in viper's usual precedence under any values already set or bound on cfg.
func Load(cfg *viper.Viper) (Settings, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	setDefaults(cfg)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if explicit := cfg.GetString(ConfigFileKey); explicit != "" {
		cfg.SetConfigFile(explicit)
	} else {
		cfg.SetConfigName(configName)
		cfg.SetConfigType(configType)
		if dir, err := configHome(); err == nil {
			cfg.AddConfigPath(dir)
		}
	}

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Settings{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := validateVersion(cfg.GetInt(versionKey)); err != nil {
		return Settings{}, err
	}

	settings := Settings{
		Link: domain.LinkConfig{
			Driver: strings.ToLower(cfg.GetString(LinkDriverKey)),
			Device: cfg.GetString(LinkDeviceKey),
			Baud:   cfg.GetInt(LinkBaudKey),
		},
		Timeout: time.Duration(cfg.GetInt64(SessionTimeoutKey)) * time.Millisecond,
		Auto: AutoSettings{
			Enabled: cfg.GetBool(AutoEnabledKey),
			Period:  domain.ClampAutoPeriod(time.Duration(cfg.GetInt64(AutoPeriodKey)) * time.Millisecond),
			Frames:  domain.ClampFrames(cfg.GetInt(AutoFramesKey)),
			Fast:    cfg.GetBool(AutoFastKey),
		},
		Log: LogSettings{
			Level: cfg.GetString(LogLevelKey),
			File:  cfg.GetString(LogFileKey),
		},
		Influx: InfluxSettings{
			URL:         cfg.GetString(InfluxURLKey),
			Token:       cfg.GetString(InfluxTokenKey),
			TokenRef:    cfg.GetString(InfluxTokenRefKey),
			Database:    cfg.GetString(InfluxDatabaseKey),
			Measurement: cfg.GetString(InfluxMeasureKey),
		},
		File: cfg.ConfigFileUsed(),
	}

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) Validate() error {
	var errs []error

	switch s.Link.Driver {
	case domain.DriverBugst, domain.DriverTarm, domain.DriverEmulator:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown link driver %q", ErrInvalidSettings, s.Link.Driver))
	}
	if s.Link.Driver != domain.DriverEmulator && s.Link.Device == "" {
		errs = append(errs, fmt.Errorf("%w: link device is empty", ErrInvalidSettings))
	}
	if s.Link.Baud <= 0 {
		errs = append(errs, fmt.Errorf("%w: link baud must be positive, got %d", ErrInvalidSettings, s.Link.Baud))
	}
	if s.Timeout < domain.MinTimeout {
		errs = append(errs, fmt.Errorf("%w: session timeout: %w", ErrInvalidSettings, domain.ErrTimeoutTooSmall))
	}

	return errors.Join(errs...)
}

func setDefaults(cfg *viper.Viper) {
	d := Defaults()
	cfg.SetDefault(LinkDriverKey, d.Link.Driver)
	cfg.SetDefault(LinkDeviceKey, d.Link.Device)
	cfg.SetDefault(LinkBaudKey, d.Link.Baud)
	cfg.SetDefault(SessionTimeoutKey, d.Timeout.Milliseconds())
	cfg.SetDefault(AutoEnabledKey, d.Auto.Enabled)
	cfg.SetDefault(AutoPeriodKey, d.Auto.Period.Milliseconds())
	cfg.SetDefault(AutoFramesKey, d.Auto.Frames)
	cfg.SetDefault(AutoFastKey, d.Auto.Fast)
	cfg.SetDefault(LogLevelKey, d.Log.Level)
	cfg.SetDefault(LogFileKey, d.Log.File)
	cfg.SetDefault(InfluxURLKey, d.Influx.URL)
	cfg.SetDefault(InfluxTokenKey, d.Influx.Token)
	cfg.SetDefault(InfluxTokenRefKey, d.Influx.TokenRef)
	cfg.SetDefault(InfluxDatabaseKey, d.Influx.Database)
	cfg.SetDefault(InfluxMeasureKey, d.Influx.Measurement)
	cfg.SetDefault(versionKey, currentConfigSchemaVersion)
}

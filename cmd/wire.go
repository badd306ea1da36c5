package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	"github.com/bnema/camlink/internal/adapters/emulator"
	statsrender "github.com/bnema/camlink/internal/adapters/render/stats"
	"github.com/bnema/camlink/internal/adapters/secrets"
	serialadapter "github.com/bnema/camlink/internal/adapters/serial"
	"github.com/bnema/camlink/internal/adapters/telemetry/influx"
	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/logging"
	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type app struct {
	cfg           *viper.Viper
	openLink      func(domain.LinkConfig, zerolog.Logger) (ports.Link, error)
	lister        ports.PortLister
	statsRenderer func(statsrender.Card, statsrender.RenderOptions) (string, error)
	newRecorder   func(tomlconfig.InfluxSettings, string, zerolog.Logger) (eventRecorder, error)
	secrets       ports.SecretReader
	historyFile   string
	now           func() time.Time
}

// eventRecorder is a session sink that must be flushed on exit.
type eventRecorder interface {
	ports.EventSink
	Close() error
}

func wireApp(cfg *viper.Viper) *app {
	return &app{
		cfg:           cfg,
		openLink:      openLink,
		lister:        serialadapter.Enumerator{},
		statsRenderer: statsrender.Render,
		newRecorder:   newInfluxRecorder,
		secrets:       secrets.NewPassFirstWithFileFallback(defaultSecretsDir()),
		historyFile:   envOrDefault("CAMLINK_HISTORY_FILE", defaultHistoryFile()),
		now:           time.Now,
	}
}

func (a *app) settings() (tomlconfig.Settings, error) {
	settings, err := tomlconfig.Load(a.cfg)
	if err != nil {
		return tomlconfig.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return settings, nil
}

func (a *app) logger(settings tomlconfig.Settings, stderr io.Writer) (zerolog.Logger, func() error, error) {
	log, closeLog, err := logging.New(logging.Options{
		Level: settings.Log.Level,
		File:  settings.Log.File,
		Out:   stderr,
	})
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("configure logging: %w", err)
	}
	return log, closeLog, nil
}

// recorder returns the telemetry sink for settings, or nil when telemetry is off.
func (a *app) recorder(ctx context.Context, settings tomlconfig.Settings, log zerolog.Logger) (eventRecorder, error) {
	influxSettings := settings.Influx
	if !influxSettings.Enabled() {
		return nil, nil
	}
	if influxSettings.Token == "" && influxSettings.TokenRef != "" {
		token, err := a.secrets.Get(ctx, influxSettings.TokenRef)
		if err != nil {
			return nil, fmt.Errorf("load influx token: %w", err)
		}
		influxSettings.Token = token
	}

	rec, err := a.newRecorder(influxSettings, settings.Link.Device, log)
	if err != nil {
		return nil, fmt.Errorf("wire telemetry: %w", err)
	}
	return rec, nil
}

func openLink(cfg domain.LinkConfig, log zerolog.Logger) (ports.Link, error) {
	if cfg.Driver == domain.DriverEmulator {
		scene := emulator.Scene{Person: envOrDefault("CAMLINK_EMULATOR_PERSON", emulator.PersonNone)}
		return emulator.NewLink(cfg, emulator.Options{Scene: scene}), nil
	}

	opener, err := serialadapter.OpenerFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	link, err := serialadapter.NewLink(cfg, opener, log)
	if err != nil {
		return nil, fmt.Errorf("open link %s: %w", cfg, err)
	}
	return link, nil
}

func newInfluxRecorder(settings tomlconfig.InfluxSettings, device string, log zerolog.Logger) (eventRecorder, error) {
	return influx.New(
		influx.Config{URL: settings.URL, Token: settings.Token, Database: settings.Database},
		influx.Options{Measurement: settings.Measurement, Device: device},
		log,
	)
}

func defaultHistoryFile() string {
	path, err := tomlconfig.DefaultPath()
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(path), "history")
}

func defaultSecretsDir() string {
	dir, err := tomlconfig.SecretsDir()
	if err != nil {
		return "secrets"
	}
	return dir
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

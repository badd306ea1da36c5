package toml

import (
	"fmt"
	"time"

	"github.com/bnema/camlink/internal/domain"
)

const currentConfigSchemaVersion = 1

type fileSchema struct {
	Version   int             `toml:"version"`
	Link      linkSchema      `toml:"link"`
	Session   sessionSchema   `toml:"session"`
	Auto      autoSchema      `toml:"auto"`
	Log       logSchema       `toml:"log"`
	Telemetry telemetrySchema `toml:"telemetry"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentConfigSchemaVersion
	}
}

func validateVersion(version int) error {
	if version > currentConfigSchemaVersion {
		return fmt.Errorf("unsupported config schema version %d (current %d)", version, currentConfigSchemaVersion)
	}

	return nil
}

type linkSchema struct {
	Driver string `toml:"driver"`
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`
}

type sessionSchema struct {
	TimeoutMS int64 `toml:"timeout_ms"`
}

type autoSchema struct {
	Enabled  bool  `toml:"enabled"`
	PeriodMS int64 `toml:"period_ms"`
	Frames   int   `toml:"frames"`
	Fast     bool  `toml:"fast"`
}

type logSchema struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type telemetrySchema struct {
	Influx influxSchema `toml:"influx"`
}

type influxSchema struct {
	URL         string `toml:"url"`
	Token       string `toml:"token"`
	TokenRef    string `toml:"token_ref"`
	Database    string `toml:"database"`
	Measurement string `toml:"measurement"`
}

func toFileSchema(s Settings) fileSchema {
	file := fileSchema{
		Version: currentConfigSchemaVersion,
		Link: linkSchema{
			Driver: s.Link.Driver,
			Device: s.Link.Device,
			Baud:   s.Link.Baud,
		},
		Session: sessionSchema{TimeoutMS: s.Timeout.Milliseconds()},
		Auto: autoSchema{
			Enabled:  s.Auto.Enabled,
			PeriodMS: s.Auto.Period.Milliseconds(),
			Frames:   s.Auto.Frames,
			Fast:     s.Auto.Fast,
		},
		Log: logSchema{Level: s.Log.Level, File: s.Log.File},
		Telemetry: telemetrySchema{Influx: influxSchema{
			URL:         s.Influx.URL,
			Token:       s.Influx.Token,
			TokenRef:    s.Influx.TokenRef,
			Database:    s.Influx.Database,
			Measurement: s.Influx.Measurement,
		}},
	}
	file.applyDefaults()
	return file
}

func fromFileSchema(file fileSchema) Settings {
	return Settings{
		Link: domain.LinkConfig{
			Driver: file.Link.Driver,
			Device: file.Link.Device,
			Baud:   file.Link.Baud,
		},
		Timeout: time.Duration(file.Session.TimeoutMS) * time.Millisecond,
		Auto: AutoSettings{
			Enabled: file.Auto.Enabled,
			Period:  time.Duration(file.Auto.PeriodMS) * time.Millisecond,
			Frames:  file.Auto.Frames,
			Fast:    file.Auto.Fast,
		},
		Log: LogSettings{Level: file.Log.Level, File: file.Log.File},
		Influx: InfluxSettings{
			URL:         file.Telemetry.Influx.URL,
			Token:       file.Telemetry.Influx.Token,
			TokenRef:    file.Telemetry.Influx.TokenRef,
			Database:    file.Telemetry.Influx.Database,
			Measurement: file.Telemetry.Influx.Measurement,
		},
	}
}

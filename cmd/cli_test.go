package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	"github.com/bnema/camlink/internal/adapters/emulator"
	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliRun struct {
	configure func(*app)
	stdin     string
}

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeCLIWith(t, cliRun{}, args...)
}

func executeCLIWith(t *testing.T, run cliRun, args ...string) (string, string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("CAMLINK_HISTORY_FILE", filepath.Join(home, "history"))

	root := buildRootCmd(run.configure)
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetIn(strings.NewReader(run.stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionPrintsBuildVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "camlink dev\n", stdout)
}

func TestProbePingAgainstEmulator(t *testing.T) {
	stdout, _, err := executeCLI(t, "probe", "--driver", "emulator")
	require.NoError(t, err)
	assert.Contains(t, stdout, "link: /dev/ttyUSB0 @ 115200 (emulator)")
	assert.Contains(t, stdout, "PING 1: ok")
	assert.Contains(t, stdout, "tx=1 rx=1 timeouts=0 errors=0 hits=0")
	assert.Contains(t, stdout, "ok: ping=1")
	assert.Contains(t, stdout, `"tool":"vision_k210"`)
}

func TestProbeScanReportsDetectionHit(t *testing.T) {
	t.Setenv("CAMLINK_EMULATOR_PERSON", "alice")

	stdout, _, err := executeCLI(t, "probe", "scan", "2", "fast", "--driver", "emulator")
	require.NoError(t, err)
	assert.Contains(t, stdout, "SCAN 1: hit")
	assert.Contains(t, stdout, "hits=1")
	assert.Contains(t, stdout, `"person":"alice"`)
}

func TestProbeRawRequest(t *testing.T) {
	stdout, _, err := executeCLI(t, "probe", "--driver", "emulator", "--raw", `{"cmd":"INFO","req_id":"bench-7"}`)
	require.NoError(t, err)
	assert.Contains(t, stdout, "INFO bench-7: ok")
	assert.Contains(t, stdout, "ok: info=1")
}

func TestProbeUnknownModuleCommandFails(t *testing.T) {
	stdout, _, err := executeCLI(t, "probe", "--driver", "emulator", "--raw", `{"cmd":"DANCE"}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errProbeFailed))
	assert.Contains(t, stdout, "DANCE 1: error")
	assert.Contains(t, stdout, "errors=1")
}

func TestProbeRejectsUnknownCommandArgument(t *testing.T) {
	_, _, err := executeCLI(t, "probe", "dance", "--driver", "emulator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown probe command "dance"`)
}

func TestProbeTimesOutOnSilentModule(t *testing.T) {
	run := cliRun{configure: func(a *app) {
		a.openLink = func(cfg domain.LinkConfig, _ zerolog.Logger) (ports.Link, error) {
			return emulator.NewLink(cfg, emulator.Options{Unresponsive: true}), nil
		}
	}}

	stdout, _, err := executeCLIWith(t, run, "probe", "info", "--timeout", "200")
	require.Error(t, err)
	assert.ErrorIs(t, err, errProbeTimedOut)
	assert.Contains(t, stdout, "INFO 1: timeout (>200 ms)")
	assert.Contains(t, stdout, "timeouts=1")
}

func TestProbeRejectsShortTimeout(t *testing.T) {
	_, _, err := executeCLI(t, "probe", "--driver", "emulator", "--timeout", "50")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeoutTooSmall)
}

func TestConsolePipedSessionRunsUntilIdle(t *testing.T) {
	run := cliRun{
		stdin: "ping\nscan 9 fast\nbogus\n",
		configure: func(a *app) {
			a.openLink = func(cfg domain.LinkConfig, _ zerolog.Logger) (ports.Link, error) {
				return emulator.NewLink(cfg, emulator.Options{Latency: 100 * time.Millisecond}), nil
			}
		},
	}

	stdout, _, err := executeCLIWith(t, run, "console")
	require.NoError(t, err)
	assert.Contains(t, stdout, "camlink: console <-> sensor module bridge")
	assert.Contains(t, stdout, `TX->LINK {"cmd":"PING","req_id":"1"}`)
	assert.Contains(t, stdout, `RX<-LINK {"req_id":"1","ok":true`)
	assert.Contains(t, stdout, "BUSY: waiting response from module, retry after response/timeout")
	assert.Contains(t, stdout, "Unknown command. Type 'help'.")
	assert.Contains(t, stdout, "stats tx=1 rx=1 timeouts=0 errors=0 ping_ok=1")
}

func TestConsoleQuitStopsImmediately(t *testing.T) {
	stdout, _, err := executeCLIWith(t, cliRun{stdin: "stats\nquit\nping\n"}, "console", "--driver", "emulator")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stats tx=0 rx=0")
	assert.NotContains(t, stdout, "TX->LINK")
}

func TestConsoleIgnoresOversizedPipedLine(t *testing.T) {
	run := cliRun{stdin: strings.Repeat("p", 70*1024) + "\nping\n"}

	stdout, _, err := executeCLIWith(t, run, "console", "--driver", "emulator")
	require.NoError(t, err)
	assert.Contains(t, stdout, "console line too long; ignored")
	assert.Contains(t, stdout, "ping_ok=1")
}

func TestConsoleListsPortsFromLister(t *testing.T) {
	run := cliRun{
		stdin: "ports\n",
		configure: func(a *app) {
			a.lister = fixedLister{{Name: "/dev/ttyACM0", IsUSB: true, VID: "303a", PID: "1001", Product: "AtomS3"}}
		},
	}

	stdout, _, err := executeCLIWith(t, run, "console", "--driver", "emulator")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/dev/ttyACM0")
	assert.Contains(t, stdout, "usb 303a:1001")
}

type fixedLister []ports.SerialPort

func (l fixedLister) List() ([]ports.SerialPort, error) {
	return l, nil
}

func TestPortsCommand(t *testing.T) {
	run := cliRun{configure: func(a *app) {
		a.lister = fixedLister{
			{Name: "/dev/ttyS0"},
			{Name: "/dev/ttyUSB0", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
		}
	}}

	stdout, _, err := executeCLIWith(t, run, "ports")
	require.NoError(t, err)
	assert.Contains(t, stdout, "/dev/ttyS0")
	assert.Contains(t, stdout, "/dev/ttyUSB0  usb 1a86:7523  USB Serial")

	stdout, _, err = executeCLIWith(t, run, "ports", "--usb")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "/dev/ttyS0")
}

func TestPortsCommandWithoutPorts(t *testing.T) {
	run := cliRun{configure: func(a *app) { a.lister = fixedLister{} }}

	stdout, _, err := executeCLIWith(t, run, "ports")
	require.NoError(t, err)
	assert.Equal(t, "no serial ports found\n", stdout)
}

func TestConfigInitThenShow(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, "bench.toml")

	stdout, _, err := executeCLI(t, "config", "init", "--config", path, "--device", "/dev/ttyACM1", "--baud", "57600")
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", stdout)

	settings, err := tomlconfig.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", settings.Link.Device)
	assert.Equal(t, 57600, settings.Link.Baud)

	stdout, _, err = executeCLI(t, "config", "show", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "# source: "+path)
	assert.Contains(t, stdout, "/dev/ttyACM1")
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camlink.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"), 0o600))

	_, _, err := executeCLI(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, tomlconfig.ErrConfigExists)

	_, _, err = executeCLI(t, "config", "init", "--config", path, "--force")
	require.NoError(t, err)
}

func TestConfigShowDefaults(t *testing.T) {
	stdout, _, err := executeCLI(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, "# source: defaults")
	assert.Contains(t, stdout, "/dev/ttyUSB0")
}

func TestUnknownDriverIsRejected(t *testing.T) {
	_, _, err := executeCLI(t, "probe", "--driver", "usbtmc")
	require.Error(t, err)
	assert.ErrorIs(t, err, tomlconfig.ErrInvalidSettings)
}

type staticSecrets map[string]string

func (s staticSecrets) Get(_ context.Context, ref string) (string, error) {
	value, ok := s[ref]
	if !ok {
		return "", fmt.Errorf("secret %q not found", ref)
	}
	return value, nil
}

type capturedRecorder struct {
	settings tomlconfig.InfluxSettings
	device   string
	events   []domain.Event
	closed   bool
}

func (r *capturedRecorder) Publish(event domain.Event) {
	r.events = append(r.events, event)
}

func (r *capturedRecorder) Close() error {
	r.closed = true
	return nil
}

func TestProbeExportsTelemetryWithResolvedToken(t *testing.T) {
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_URL", "http://influx.local:8181")
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_DATABASE", "bench")
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_TOKEN_REF", "camlink/influx")

	rec := &capturedRecorder{}
	run := cliRun{configure: func(a *app) {
		a.secrets = staticSecrets{"camlink/influx": "tok-789"}
		a.newRecorder = func(settings tomlconfig.InfluxSettings, device string, _ zerolog.Logger) (eventRecorder, error) {
			rec.settings = settings
			rec.device = device
			return rec, nil
		}
	}}

	_, _, err := executeCLIWith(t, run, "probe", "--driver", "emulator")
	require.NoError(t, err)

	assert.Equal(t, "tok-789", rec.settings.Token)
	assert.Equal(t, "bench", rec.settings.Database)
	assert.Equal(t, "/dev/ttyUSB0", rec.device)
	assert.True(t, rec.closed)

	var kinds []domain.EventKind
	for _, event := range rec.events {
		kinds = append(kinds, event.Kind)
	}
	assert.Contains(t, kinds, domain.EventMatched)
}

func TestProbeFailsWhenTelemetryTokenIsMissing(t *testing.T) {
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_URL", "http://influx.local:8181")
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_DATABASE", "bench")
	t.Setenv("CAMLINK_TELEMETRY_INFLUX_TOKEN_REF", "camlink/absent")

	run := cliRun{configure: func(a *app) { a.secrets = staticSecrets{} }}

	_, _, err := executeCLIWith(t, run, "probe", "--driver", "emulator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load influx token")
}

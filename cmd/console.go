package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	"github.com/bnema/camlink/internal/adapters/console"
	"github.com/bnema/camlink/internal/application"
	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/spf13/cobra"
)

func newConsoleCmd(app *app) *cobra.Command {
	var timeoutMS int
	var auto bool

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Bridge the terminal to the module link",
		Long:  "console reads commands from the terminal (or piped stdin), sends requests over the link and prints every exchange. Piped input ends the session once the last request resolves.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("timeout") {
				app.cfg.Set(tomlconfig.SessionTimeoutKey, timeoutMS)
			}
			if cmd.Flags().Changed("auto") {
				app.cfg.Set(tomlconfig.AutoEnabledKey, auto)
			}
			return runConsole(cmd, app)
		},
	}

	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "Response timeout in milliseconds (>= 200)")
	cmd.Flags().BoolVar(&auto, "auto", false, "Start with auto scan enabled")

	return cmd
}

func runConsole(cmd *cobra.Command, app *app) (err error) {
	settings, err := app.settings()
	if err != nil {
		return err
	}

	log, closeLog, err := app.logger(settings, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, closeLog()) }()

	link, err := app.openLink(settings.Link, log)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, link.Close()) }()

	if app.historyFile != "" {
		if mkErr := os.MkdirAll(filepath.Dir(app.historyFile), 0o700); mkErr != nil {
			log.Warn().Err(mkErr).Msg("history directory unavailable")
		}
	}
	editor := console.NewEditor(console.Options{
		In:          cmd.InOrStdin(),
		Out:         cmd.OutOrStdout(),
		HistoryFile: app.historyFile,
		Log:         log,
	})
	defer func() { err = errors.Join(err, editor.Close()) }()

	clock := clockFunc(app.now)
	session := application.NewSession(link, clock, log)
	if err := session.SetTimeout(settings.Timeout); err != nil {
		return err
	}
	session.Subscribe(console.NewReporter(editor, editor, app.now()))

	recorder, err := app.recorder(cmd.Context(), settings, log)
	if err != nil {
		return err
	}
	if recorder != nil {
		session.Subscribe(recorder)
		defer func() { err = errors.Join(err, recorder.Close()) }()
	}

	poller := application.NewAutoPoller(session)
	interpreter := application.NewInterpreter(application.InterpreterDeps{
		Session: session,
		Poller:  poller,
		Display: editor,
		Link:    link,
		Lister:  app.lister,
		Log:     log,
	})

	for _, line := range application.BannerText(link.Config()) {
		editor.Println(line)
	}
	editor.Show(domain.IndicatorIdle)

	if settings.Auto.Enabled {
		auto := poller.Enable(settings.Auto.Period, settings.Auto.Frames, settings.Auto.Fast)
		editor.Println(fmt.Sprintf("auto scan enabled: period=%d ms frames=%d mode=%s",
			auto.Period.Milliseconds(), auto.Frames, domain.ModeLabel(auto.Fast)))
	}

	bridge := application.NewBridge(application.BridgeDeps{
		Console:     editor,
		Link:        link,
		Session:     session,
		Poller:      poller,
		Interpreter: interpreter,
		Clock:       clock,
		Log:         log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	log.Info().Str("link", link.Config().String()).Msg("console started")
	if runErr := bridge.Run(ctx, application.DefaultLoopInterval); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	editor.Println(application.FormatStats(session.Stats(), session.Busy(), poller.Config().Enabled))
	return nil
}

// clockFunc adapts a time source to ports.Clock.
type clockFunc func() time.Time

func (f clockFunc) Now() time.Time {
	return f()
}

var _ ports.Clock = clockFunc(nil)

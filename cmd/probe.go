package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tomlconfig "github.com/bnema/camlink/internal/adapters/config/toml"
	statsrender "github.com/bnema/camlink/internal/adapters/render/stats"
	"github.com/bnema/camlink/internal/application"
	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/bnema/camlink/internal/protocol"
	"github.com/spf13/cobra"
)

var (
	errProbeTimedOut = errors.New("no response before timeout")
	errProbeFailed   = errors.New("module reported failure")
)

var probeCommands = []string{"ping", "info", "scan", "who", "objects"}

func newProbeCmd(app *app) *cobra.Command {
	var timeoutMS int
	var raw string

	cmd := &cobra.Command{
		Use:       "probe [ping|info|scan|who|objects] [frames] [fast|reliable]",
		Short:     "Send one request and show the result",
		Long:      "probe opens the link, sends a single request (ping by default, or --raw JSON), waits for its response or timeout and prints a session card. It exits non-zero when the module does not answer or answers with an error.",
		Args:      cobra.MaximumNArgs(3),
		ValidArgs: probeCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("timeout") {
				app.cfg.Set(tomlconfig.SessionTimeoutKey, timeoutMS)
			}
			return runProbe(cmd, app, args, raw)
		},
	}

	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "Response timeout in milliseconds (>= 200)")
	cmd.Flags().StringVar(&raw, "raw", "", "Send this JSON object instead of a named command")

	return cmd
}

type probeRequest struct {
	command string
	args    protocol.Args
	raw     string
}

func parseProbeRequest(args []string, raw string) (probeRequest, error) {
	if raw != "" {
		if len(args) > 0 {
			return probeRequest{}, errors.New("--raw cannot be combined with a command argument")
		}
		return probeRequest{raw: raw}, nil
	}

	name := "ping"
	if len(args) > 0 {
		name = strings.ToLower(args[0])
	}

	switch name {
	case "ping", "info":
		if len(args) > 1 {
			return probeRequest{}, fmt.Errorf("%s takes no arguments", name)
		}
		return probeRequest{command: strings.ToUpper(name), args: protocol.NoArgs}, nil
	case "scan", "who", "objects":
		frames := domain.DefaultFrames
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return probeRequest{}, fmt.Errorf("frames must be a number: %q", args[1])
			}
			frames = n
		}
		fast := len(args) > 2 && strings.EqualFold(args[2], "fast")
		return probeRequest{command: strings.ToUpper(name), args: protocol.ScanArgs(frames, fast)}, nil
	default:
		return probeRequest{}, fmt.Errorf("unknown probe command %q (want one of %s)", name, strings.Join(probeCommands, ", "))
	}
}

// probeTracker remembers how the request ended and the last line received.
type probeTracker struct {
	last     *domain.Event
	response string
}

func (t *probeTracker) Publish(event domain.Event) {
	switch event.Kind {
	case domain.EventReceived:
		t.response = event.Line
	case domain.EventMatched, domain.EventTimedOut:
		e := event
		t.last = &e
	}
}

func runProbe(cmd *cobra.Command, app *app, args []string, raw string) (err error) {
	request, err := parseProbeRequest(args, raw)
	if err != nil {
		return err
	}

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

	session := application.NewSession(link, clockFunc(app.now), log)
	if err := session.SetTimeout(settings.Timeout); err != nil {
		return err
	}
	tracker := &probeTracker{}
	session.Subscribe(tracker)

	recorder, err := app.recorder(cmd.Context(), settings, log)
	if err != nil {
		return err
	}
	if recorder != nil {
		session.Subscribe(recorder)
		defer func() { err = errors.Join(err, recorder.Close()) }()
	}

	if err := submitProbe(session, request); err != nil {
		return err
	}

	wait := probeWait{pending: session.Pending(), timeout: session.Timeout()}
	await := func(ctx context.Context) (*domain.Event, error) {
		return awaitResolution(ctx, session, link, tracker, app.now)
	}
	last, err := runProbeSpinner(cmd.Context(), cmd.ErrOrStderr(), wait, app.now, await)
	if err != nil {
		return err
	}

	rendered, err := app.statsRenderer(statsrender.Card{
		Link:     link.Config(),
		Stats:    session.Stats(),
		Last:     last,
		Response: tracker.response,
	}, statsrender.RenderOptions{})
	if err != nil {
		return fmt.Errorf("render stats: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), rendered); err != nil {
		return err
	}

	switch {
	case last == nil:
		return nil
	case last.Kind == domain.EventTimedOut:
		return fmt.Errorf("probe %s: %w", last.Command, errProbeTimedOut)
	case !last.Class.Success:
		return fmt.Errorf("probe %s: %w", last.Command, errProbeFailed)
	default:
		return nil
	}
}

func submitProbe(session *application.Session, request probeRequest) error {
	var err error
	if request.raw != "" {
		_, err = session.SubmitRaw(request.raw)
	} else {
		_, err = session.Submit(request.command, request.args)
	}
	return err
}

// awaitResolution drives the session until the pending request is matched or times out.
func awaitResolution(ctx context.Context, session *application.Session, link ports.Link, tracker *probeTracker, now func() time.Time) (*domain.Event, error) {
	ticker := time.NewTicker(application.DefaultLoopInterval)
	defer ticker.Stop()

	for {
		frames, pollErr := link.Poll()
		for _, frame := range frames {
			if frame.Overflow {
				session.RecordOverflow()
				continue
			}
			session.OnLineReceived(frame.Line)
		}
		if pollErr != nil {
			return nil, fmt.Errorf("poll link: %w", pollErr)
		}
		session.Tick(now())
		if tracker.last != nil {
			return tracker.last, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/ergochat/readline"
	"github.com/rs/zerolog"
	"golang.org/x/term"
)

const historyLimit = 500

type Options struct {
	In  io.Reader
	Out io.Writer
	// HistoryFile persists interactive history. Empty disables it.
	HistoryFile string
	Log         zerolog.Logger
}

// Editor reads operator lines on a background goroutine and hands them to the loop
// through Poll. A terminal on In gets line editing, history and a status badge in the
// prompt; anything else is read line by line without a prompt.
type Editor struct {
	out    io.Writer
	rl     *readline.Instance
	log    zerolog.Logger
	badges badgeStyles

	writeMu sync.Mutex

	mu    sync.Mutex
	lines []string
	eof   bool
	state domain.Indicator
}

var (
	_ ports.Console   = (*Editor)(nil)
	_ ports.Indicator = (*Editor)(nil)
)

func NewEditor(opts Options) *Editor {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	e := &Editor{
		out:    out,
		log:    opts.Log.With().Str("component", "console").Logger(),
		badges: newBadgeStyles(),
		state:  domain.IndicatorBoot,
	}

	if isInteractive(in) {
		rl, err := readline.NewFromConfig(&readline.Config{
			HistoryFile:            opts.HistoryFile,
			HistoryLimit:           historyLimit,
			DisableAutoSaveHistory: true,
			Prompt:                 e.prompt(domain.IndicatorBoot),
		})
		if err == nil {
			e.rl = rl
			go e.readInteractive()
			return e
		}
		e.log.Warn().Err(err).Msg("readline unavailable, using plain input")
	}

	go e.readPlain(in)
	return e
}

func isInteractive(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && os.Getenv("INSIDE_EMACS") == ""
}

// Interactive reports whether the editor drives a terminal.
func (e *Editor) Interactive() bool {
	return e.rl != nil
}

func (e *Editor) readInteractive() {
	for {
		line, err := e.rl.Readline()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, readline.ErrInterrupt) {
				e.log.Error().Err(err).Msg("read console")
			}
			e.finish()
			return
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			_ = e.rl.SaveToHistory(trimmed)
		}
		e.push(line)
	}
}

// readPlain keeps at most one byte beyond domain.MaxConsoleLine of each line so
// the interpreter still sees an over-long line and rejects it.
func (e *Editor) readPlain(in io.Reader) {
	reader := bufio.NewReader(in)
	var line []byte
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if room := domain.MaxConsoleLine + 1 - len(line); room > 0 {
			line = append(line, chunk[:min(len(chunk), room)]...)
		}
		if err != nil {
			if len(line) > 0 {
				e.push(string(line))
			}
			if !errors.Is(err, io.EOF) {
				e.log.Error().Err(err).Msg("read console")
			}
			e.finish()
			return
		}
		if !isPrefix {
			e.push(string(line))
			line = line[:0]
		}
	}
}

func (e *Editor) push(line string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = append(e.lines, line)
}

func (e *Editor) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eof = true
}

// Poll returns the lines read since the last call. Once input has ended and every
// line has been handed out it returns io.EOF.
func (e *Editor) Poll() ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lines) == 0 {
		if e.eof {
			return nil, io.EOF
		}
		return nil, nil
	}
	lines := e.lines
	e.lines = nil
	return lines, nil
}

func (e *Editor) Println(line string) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if e.rl != nil {
		_, _ = e.rl.Write([]byte(line + "\n"))
		return
	}
	_, _ = fmt.Fprintln(e.out, line)
}

// Show moves the status badge. Only the interactive prompt displays it.
func (e *Editor) Show(state domain.Indicator) {
	e.mu.Lock()
	changed := e.state != state
	e.state = state
	e.mu.Unlock()

	if changed && e.rl != nil {
		e.rl.SetPrompt(e.prompt(state))
	}
}

func (e *Editor) State() domain.Indicator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Editor) prompt(state domain.Indicator) string {
	return e.badges.render(state) + " camlink> "
}

func (e *Editor) Close() error {
	if e.rl == nil {
		return nil
	}
	if err := e.rl.Close(); err != nil {
		return fmt.Errorf("close line editor: %w", err)
	}
	return nil
}

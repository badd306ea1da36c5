package application

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/bnema/camlink/internal/ports"
	"github.com/bnema/camlink/internal/protocol"
	"github.com/rs/zerolog"
)

var helpLines = []string{
	"Commands:",
	"  help",
	"  ping",
	"  info",
	"  scan [frames] [fast|reliable]",
	"  who [frames] [fast|reliable]",
	"  objects [frames] [fast|reliable]",
	"  auto on [period_ms] [frames] [fast|reliable]",
	"  auto off",
	"  timeout <ms>",
	"  link                       (show link parameters)",
	"  link <device> [baud]       (reopen link on another device)",
	"  baud <rate>                (reopen link at another baud rate)",
	"  ports                      (list serial ports)",
	"  stats",
	"  clear",
	`  raw {"cmd":"PING","req_id":"123"}`,
	"  quit",
	"  Any line starting with '{' is treated as raw JSON and sent to the module",
}

// HelpText returns the console command reference.
func HelpText() []string {
	out := make([]string, len(helpLines))
	copy(out, helpLines)
	return out
}

func BannerText(link domain.LinkConfig) []string {
	return []string{
		"",
		"camlink: console <-> sensor module bridge",
		"Link: " + link.String(),
		"Type 'help' for commands. First quick check: ping",
	}
}

// Interpreter turns operator console lines into session operations.
type Interpreter struct {
	session *Session
	poller  *AutoPoller
	display ports.Display
	link    ports.LinkControl
	lister  ports.PortLister
	log     zerolog.Logger
}

type InterpreterDeps struct {
	Session *Session
	Poller  *AutoPoller
	Display ports.Display
	Link    ports.LinkControl
	Lister  ports.PortLister
	Log     zerolog.Logger
}

func NewInterpreter(deps InterpreterDeps) *Interpreter {
	return &Interpreter{
		session: deps.Session,
		poller:  deps.Poller,
		display: deps.Display,
		link:    deps.Link,
		lister:  deps.Lister,
		log:     deps.Log.With().Str("component", "interpreter").Logger(),
	}
}

// Execute runs one console line. It reports true when the operator asked to quit.
func (i *Interpreter) Execute(line string) bool {
	if len(line) > domain.MaxConsoleLine {
		i.println("console line too long; ignored")
		return false
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if strings.HasPrefix(line, "{") {
		i.submitRaw(line)
		return false
	}

	fields := strings.Fields(line)
	command := strings.ToLower(fields[0])
	args := fields[1:]

	switch command {
	case "raw":
		payload := strings.TrimSpace(line[len(fields[0]):])
		if !strings.HasPrefix(payload, "{") {
			i.println("raw expects a JSON object")
			return false
		}
		i.submitRaw(payload)
	case "help", "?":
		i.printLines(HelpText())
	case "ping":
		i.submit("PING", protocol.NoArgs)
	case "info":
		i.submit("INFO", protocol.NoArgs)
	case "scan", "who", "objects":
		frames := parseFrames(tokenAt(args, 0))
		fast := parseMode(tokenAt(args, 1))
		i.submit(strings.ToUpper(command), protocol.ScanArgs(frames, fast))
	case "auto":
		i.auto(args)
	case "timeout":
		i.timeout(args)
	case "link":
		i.reopenLink(args)
	case "baud":
		i.baud(args)
	case "ports":
		i.listPorts()
	case "stats":
		i.println(FormatStats(i.session.Stats(), i.session.Busy(), i.poller.Config().Enabled))
	case "clear":
		i.session.ClearStats()
		i.println("stats cleared")
	case "quit", "exit":
		return true
	default:
		i.println("Unknown command. Type 'help'.")
	}
	return false
}

func (i *Interpreter) submit(command string, args protocol.Args) {
	if _, err := i.session.Submit(command, args); err != nil {
		i.reportSubmitError(err)
	}
}

func (i *Interpreter) submitRaw(line string) {
	if _, err := i.session.SubmitRaw(line); err != nil {
		i.reportSubmitError(err)
	}
}

func (i *Interpreter) reportSubmitError(err error) {
	switch {
	case errors.Is(err, domain.ErrBusy):
		i.println("BUSY: waiting response from module, retry after response/timeout")
	case errors.Is(err, domain.ErrMalformedRaw):
		i.println("RAW JSON must be a single JSON object")
	default:
		i.log.Error().Err(err).Msg("submit request")
		i.println("send failed: " + err.Error())
	}
}

func (i *Interpreter) auto(args []string) {
	switch strings.ToLower(tokenAt(args, 0)) {
	case "off":
		i.poller.Disable()
		i.println("auto scan disabled")
	case "on":
		period := millis(tokenAt(args, 1))
		cfg := i.poller.Enable(period, parseFrames(tokenAt(args, 2)), parseMode(tokenAt(args, 3)))
		i.println(fmt.Sprintf("auto scan enabled: period=%d ms frames=%d mode=%s",
			cfg.Period.Milliseconds(), cfg.Frames, domain.ModeLabel(cfg.Fast)))
	default:
		i.println("usage: auto on [period_ms] [frames] [fast|reliable] | auto off")
	}
}

func (i *Interpreter) timeout(args []string) {
	if err := i.session.SetTimeout(millis(tokenAt(args, 0))); err != nil {
		i.println(err.Error())
		return
	}
	i.println(fmt.Sprintf("timeout=%d ms", i.session.Timeout().Milliseconds()))
}

func (i *Interpreter) reopenLink(args []string) {
	current := i.link.Config()
	if len(args) == 0 {
		i.println("link: " + current.String())
		return
	}

	next := current
	next.Device = args[0]
	if len(args) > 1 {
		baud := leadingInt(args[1])
		if baud <= 0 {
			i.println("usage: link <device> [baud]")
			return
		}
		next.Baud = int(baud)
	}
	i.applyLink(next)
}

func (i *Interpreter) baud(args []string) {
	baud := leadingInt(tokenAt(args, 0))
	if baud <= 0 {
		i.println("usage: baud <rate>")
		return
	}

	next := i.link.Config()
	next.Baud = int(baud)
	i.applyLink(next)
}

func (i *Interpreter) applyLink(next domain.LinkConfig) {
	err := i.session.ReconfigureLink(func() error {
		return i.link.Reopen(next)
	})
	switch {
	case errors.Is(err, domain.ErrLinkBusy):
		i.println("Cannot reopen link while request is pending")
	case err != nil:
		i.log.Error().Err(err).Str("device", next.Device).Msg("reopen link")
		i.println("link reopen failed: " + err.Error())
	default:
		i.println("link reopened: " + i.link.Config().String())
	}
}

func (i *Interpreter) listPorts() {
	if i.lister == nil {
		i.println("port listing unavailable")
		return
	}

	found, err := i.lister.List()
	if err != nil {
		i.println("list ports: " + err.Error())
		return
	}
	if len(found) == 0 {
		i.println("no serial ports found")
		return
	}
	for _, port := range found {
		i.println(FormatPort(port))
	}
}

// FormatPort renders one serial port listing line.
func FormatPort(port ports.SerialPort) string {
	if !port.IsUSB {
		return "  " + port.Name
	}

	line := fmt.Sprintf("  %s  usb %s:%s", port.Name, port.VID, port.PID)
	if port.Product != "" {
		line += "  " + port.Product
	}
	if port.SerialNumber != "" {
		line += "  sn=" + port.SerialNumber
	}
	return line
}

func (i *Interpreter) println(line string) {
	i.display.Println(line)
}

func (i *Interpreter) printLines(lines []string) {
	for _, line := range lines {
		i.display.Println(line)
	}
}

func tokenAt(tokens []string, index int) string {
	if index < len(tokens) {
		return tokens[index]
	}
	return ""
}

// parseFrames maps an empty or non-positive token to the default frame count.
func parseFrames(token string) int {
	return domain.ClampFrames(int(leadingInt(token)))
}

func parseMode(token string) bool {
	return strings.EqualFold(token, "fast")
}

const maxMillis = math.MaxInt64 / int64(time.Millisecond)

// millis reads a millisecond count from token, saturating instead of wrapping.
func millis(token string) time.Duration {
	ms := leadingInt(token)
	switch {
	case ms > maxMillis:
		ms = maxMillis
	case ms < -maxMillis:
		ms = -maxMillis
	}
	return time.Duration(ms) * time.Millisecond
}

// leadingInt parses an optional sign and the leading decimal digits of token, returning
// zero when there are none and saturating at the int64 range.
func leadingInt(token string) int64 {
	end := 0
	if end < len(token) && (token[end] == '-' || token[end] == '+') {
		end++
	}
	digits := end
	for end < len(token) && token[end] >= '0' && token[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}

	v, err := strconv.ParseInt(token[:end], 10, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return v
}

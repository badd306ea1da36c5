package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bnema/camlink/internal/domain"
)

type Field struct {
	Key   string
	Value any
}

// Args is an ordered flat argument object. A nil Args omits the "args" member; an empty
// non-nil Args encodes as {}.
type Args []Field

// NoArgs encodes as an empty object.
var NoArgs = Args{}

func (a Args) Encode() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, field := range a {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(Escape(field.Key))
		b.WriteString(`":`)
		b.WriteString(encodeValue(field.Value))
	}
	b.WriteByte('}')
	return b.String()
}

func encodeValue(v any) string {
	switch value := v.(type) {
	case string:
		return `"` + Escape(value) + `"`
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint32:
		return strconv.FormatUint(uint64(value), 10)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case nil:
		return "null"
	default:
		return `"` + Escape(fmt.Sprint(value)) + `"`
	}
}

// BuildRequest renders one newline-terminated request line.
func BuildRequest(command string, args Args, id domain.RequestID) string {
	var b strings.Builder
	b.WriteString(`{"cmd":"`)
	b.WriteString(Escape(command))
	b.WriteString(`","req_id":"`)
	b.WriteString(Escape(string(id)))
	b.WriteByte('"')
	if args != nil {
		b.WriteString(`,"args":`)
		b.WriteString(args.Encode())
	}
	b.WriteString("}\n")
	return b.String()
}

// Escape handles backslash, quote and the \n \r \t control characters only. It is not a
// general JSON string encoder.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// ScanArgs is the argument shape shared by SCAN, WHO and OBJECTS.
func ScanArgs(frames int, fast bool) Args {
	return Args{
		{Key: "mode", Value: domain.ModeLabel(fast)},
		{Key: "frames", Value: domain.ClampFrames(frames)},
	}
}

// SpliceRequestID inserts a req_id member right after the first opening brace.
func SpliceRequestID(line string, id domain.RequestID) string {
	brace := strings.IndexByte(line, '{')
	if brace < 0 {
		return line
	}
	rest := line[brace+1:]
	member := `"req_id":"` + Escape(string(id)) + `"`
	if !strings.HasPrefix(strings.TrimLeft(rest, " \t\r\n"), "}") {
		member += ","
	}
	return line[:brace+1] + member + rest
}

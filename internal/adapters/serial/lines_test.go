package serial

import (
	"strings"
	"testing"

	"github.com/bnema/camlink/internal/ports"
	"github.com/stretchr/testify/assert"
)

func TestLineAssemblerSplitsAcrossChunks(t *testing.T) {
	t.Parallel()

	a := newLineAssembler(64)

	assert.Empty(t, a.Feed([]byte(`{"req_id":"1",`)))
	assert.Equal(t, []ports.Frame{{Line: `{"req_id":"1","ok":true}`}}, a.Feed([]byte("\"ok\":true}\r\n{\"a\"")))
	assert.Equal(t, []ports.Frame{{Line: `{"a":1}`}, {Line: "x"}}, a.Feed([]byte(":1}\nx\n")))
}

func TestLineAssemblerSkipsEmptyLines(t *testing.T) {
	t.Parallel()

	a := newLineAssembler(64)
	assert.Empty(t, a.Feed([]byte("\r\n\n\r\r\n")))
}

func TestLineAssemblerOverflow(t *testing.T) {
	t.Parallel()

	a := newLineAssembler(8)

	frames := a.Feed([]byte(strings.Repeat("y", 20) + "\nok\n"))
	assert.Equal(t, []ports.Frame{{Overflow: true}, {Line: "ok"}}, frames)

	assert.Equal(t, []ports.Frame{{Line: "12345678"}}, a.Feed([]byte("12345678\n")), "exactly max bytes fits")
}

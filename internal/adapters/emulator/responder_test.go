package emulator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestResponderCommands(t *testing.T) {
	t.Parallel()

	r := NewResponder(Scene{Person: "OWNER_1", Objects: []string{"cup"}})

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{
			name:    "ping",
			request: `{"cmd":"PING","req_id":"1","args":{}}`,
			want:    `{"req_id":"1","ok":true,"result":{"status":"ok","tool":"vision_k210"}}`,
		},
		{
			name:    "info",
			request: `{"cmd":"info","req_id":"2"}`,
			want:    `{"req_id":"2","ok":true,"result":{"tool":"vision_k210","fw_version":"1.0.0","protocol_version":"1","capabilities":{"faces":true,"objects":true,"learn":true,"sd":false}}}`,
		},
		{
			name:    "scan",
			request: `{"cmd":"SCAN","req_id":"3","args":{"mode":"RELIABLE","frames":9}}`,
			want:    `{"req_id":"3","ok":true,"result":{"elapsed_ms":0,"person":"OWNER_1","faces_detected":1,"objects":["cup"],"frames":5,"truncated":false}}`,
		},
		{
			name:    "who fast defaults to one frame",
			request: `{"cmd":"WHO","req_id":"4","args":{"mode":"FAST"}}`,
			want:    `{"req_id":"4","ok":true,"result":{"elapsed_ms":0,"person":"OWNER_1","frames":1}}`,
		},
		{
			name:    "objects",
			request: `{"cmd":"OBJECTS","req_id":"5","args":{"frames":0}}`,
			want:    `{"req_id":"5","ok":true,"result":{"elapsed_ms":0,"objects":["cup"],"frames":1,"truncated":false}}`,
		},
		{
			name:    "unknown command",
			request: `{"cmd":"DANCE","req_id":"6"}`,
			want:    `{"req_id":"6","ok":false,"error":{"code":"BAD_REQUEST","message":"unknown_cmd"}}`,
		},
		{
			name:    "numeric req_id is echoed",
			request: `{"cmd":"PING","req_id":7}`,
			want:    `{"req_id":7,"ok":true,"result":{"status":"ok","tool":"vision_k210"}}`,
		},
		{
			name:    "bad json",
			request: `{"cmd":`,
			want:    `{"req_id":null,"ok":false,"error":{"code":"BAD_REQUEST","message":"bad_json"}}`,
		},
		{
			name:    "not an object",
			request: `[1,2]`,
			want:    `{"req_id":null,"ok":false,"error":{"code":"BAD_REQUEST","message":"bad_obj"}}`,
		},
		{
			name:    "missing req_id",
			request: `{"cmd":"PING"}`,
			want:    `{"req_id":null,"ok":false,"error":{"code":"BAD_REQUEST","message":"missing_req"}}`,
		},
		{
			name:    "missing cmd",
			request: `{"req_id":"8"}`,
			want:    `{"req_id":"8","ok":false,"error":{"code":"BAD_REQUEST","message":"missing_cmd"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(r.Respond([]byte(tt.request), t0, false)))
			assert.Equal(t, tt.want, string(r.Respond([]byte(tt.request), t0, false)), "field order")
		})
	}
}

func TestResponderEmptySceneReportsNone(t *testing.T) {
	t.Parallel()

	r := NewResponder(Scene{})
	got := string(r.Respond([]byte(`{"cmd":"SCAN","req_id":"1"}`), t0, false))
	assert.Contains(t, got, `"person":"NONE"`)
	assert.Contains(t, got, `"objects":[]`)
	assert.Contains(t, got, `"faces_detected":0`)
}

func TestResponderDedup(t *testing.T) {
	t.Parallel()

	r := NewResponder(Scene{})
	first := r.Respond([]byte(`{"cmd":"WHO","req_id":"1"}`), t0, false)

	r.SetScene(Scene{Person: "OWNER_2"})
	again := r.Respond([]byte(`{"cmd":"WHO","req_id":"1"}`), t0.Add(DedupTTL), false)
	assert.Equal(t, first, again, "cached inside the TTL")

	later := r.Respond([]byte(`{"cmd":"WHO","req_id":"1"}`), t0.Add(DedupTTL+time.Millisecond), false)
	assert.Contains(t, string(later), "OWNER_2")
}

func TestResponderBusy(t *testing.T) {
	t.Parallel()

	r := NewResponder(Scene{})
	got := r.Respond([]byte(`{"cmd":"SCAN","req_id":"9"}`), t0, true)
	assert.Equal(t, `{"req_id":"9","ok":false,"error":{"code":"BUSY","message":"busy"}}`, string(got))

	assert.Equal(t, got, r.Respond([]byte(`{"cmd":"SCAN","req_id":"9"}`), t0, false), "busy answers are cached too")
}

func TestResponderCapsResponseSize(t *testing.T) {
	t.Parallel()

	objects := make([]string, 0, 64)
	for i := 0; i < 64; i++ {
		objects = append(objects, strings.Repeat("o", 16))
	}
	r := NewResponder(Scene{Objects: objects})

	got := r.Respond([]byte(`{"cmd":"OBJECTS","req_id":"1"}`), t0, false)
	assert.Equal(t, `{"req_id":"1","ok":false,"error":{"code":"BAD_REQUEST","message":"too_long"}}`, string(got))
	assert.LessOrEqual(t, len(got), MaxResponseBytes)
}

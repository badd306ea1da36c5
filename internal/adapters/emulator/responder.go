// Package emulator stands in for the sensor module so the bridge can run without
// hardware. It answers the same newline JSON requests the module firmware does.
package emulator

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

const (
	ToolName        = "vision_k210"
	FirmwareVersion = "1.0.0"
	ProtocolVersion = "1"

	// MaxResponseBytes caps one encoded response line, newline excluded.
	MaxResponseBytes = 768
	DedupTTL         = 2000 * time.Millisecond

	PersonNone = "NONE"

	maxScanFrames   = 5
	maxMessageBytes = 24
)

const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeBusy         = "BUSY"
	CodeVisionFailed = "VISION_FAILED"
)

// Scene is what the emulated camera sees.
type Scene struct {
	Person  string
	Objects []string
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	ReqID any       `json:"req_id"`
	OK    bool      `json:"ok"`
	Error errorBody `json:"error"`
}

type okResponse struct {
	ReqID  any  `json:"req_id"`
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

type pingResult struct {
	Status string `json:"status"`
	Tool   string `json:"tool"`
}

type capabilities struct {
	Faces   bool `json:"faces"`
	Objects bool `json:"objects"`
	Learn   bool `json:"learn"`
	SD      bool `json:"sd"`
}

type infoResult struct {
	Tool            string       `json:"tool"`
	FirmwareVersion string       `json:"fw_version"`
	ProtocolVersion string       `json:"protocol_version"`
	Capabilities    capabilities `json:"capabilities"`
}

type scanResult struct {
	ElapsedMS     int      `json:"elapsed_ms"`
	Person        string   `json:"person"`
	FacesDetected int      `json:"faces_detected"`
	Objects       []string `json:"objects"`
	Frames        int      `json:"frames"`
	Truncated     bool     `json:"truncated"`
}

type whoResult struct {
	ElapsedMS int    `json:"elapsed_ms"`
	Person    string `json:"person"`
	Frames    int    `json:"frames"`
}

type objectsResult struct {
	ElapsedMS int      `json:"elapsed_ms"`
	Objects   []string `json:"objects"`
	Frames    int      `json:"frames"`
	Truncated bool     `json:"truncated"`
}

type dedupEntry struct {
	at  time.Time
	raw []byte
}

// Responder answers one request line at a time. Repeated req_ids inside DedupTTL get
// the cached response back.
type Responder struct {
	mu    sync.Mutex
	scene Scene
	dedup map[string]dedupEntry
}

func NewResponder(scene Scene) *Responder {
	return &Responder{scene: normalizeScene(scene), dedup: map[string]dedupEntry{}}
}

func (r *Responder) SetScene(scene Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scene = normalizeScene(scene)
}

// Respond returns the response line for request, without the trailing newline. busy
// reports that an earlier request is still being processed.
func (r *Responder) Respond(request []byte, now time.Time, busy bool) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(request), &payload); err != nil {
		if json.Valid(bytes.TrimSpace(request)) {
			return encode(shortError(nil, CodeBadRequest, "bad_obj"))
		}
		return encode(shortError(nil, CodeBadRequest, "bad_json"))
	}
	if payload == nil {
		return encode(shortError(nil, CodeBadRequest, "bad_obj"))
	}

	rawID, ok := payload["req_id"]
	if !ok || string(rawID) == "null" {
		return encode(shortError(nil, CodeBadRequest, "missing_req"))
	}
	var reqID any
	_ = json.Unmarshal(rawID, &reqID)

	rawCmd, ok := payload["cmd"]
	if !ok || string(rawCmd) == "null" {
		return encode(shortError(reqID, CodeBadRequest, "missing_cmd"))
	}

	key := string(rawID)
	if cached, ok := r.cached(key, now); ok {
		return cached
	}

	var raw []byte
	if busy {
		raw = encode(shortError(reqID, CodeBusy, "busy"))
	} else {
		raw = r.dispatch(reqID, commandName(rawCmd), decodeArgs(payload["args"]))
	}

	r.gc(now)
	r.dedup[key] = dedupEntry{at: now, raw: raw}
	return raw
}

func (r *Responder) dispatch(reqID any, command string, args map[string]any) []byte {
	frames := scanFrames(args)

	var result any
	switch command {
	case "PING":
		result = pingResult{Status: "ok", Tool: ToolName}
	case "INFO":
		result = infoResult{
			Tool:            ToolName,
			FirmwareVersion: FirmwareVersion,
			ProtocolVersion: ProtocolVersion,
			Capabilities:    capabilities{Faces: true, Objects: true, Learn: true},
		}
	case "SCAN":
		faces := 0
		if r.scene.Person != PersonNone {
			faces = 1
		}
		result = scanResult{
			Person:        r.scene.Person,
			FacesDetected: faces,
			Objects:       r.scene.Objects,
			Frames:        frames,
		}
	case "WHO":
		result = whoResult{Person: r.scene.Person, Frames: frames}
	case "OBJECTS":
		result = objectsResult{Objects: r.scene.Objects, Frames: frames}
	default:
		return encode(shortError(reqID, CodeBadRequest, "unknown_cmd"))
	}

	return encodeCapped(okResponse{ReqID: reqID, OK: true, Result: result}, reqID)
}

func (r *Responder) cached(key string, now time.Time) ([]byte, bool) {
	entry, ok := r.dedup[key]
	if !ok {
		return nil, false
	}
	if now.Sub(entry.at) > DedupTTL {
		delete(r.dedup, key)
		return nil, false
	}
	return entry.raw, true
}

func (r *Responder) gc(now time.Time) {
	for key, entry := range r.dedup {
		if now.Sub(entry.at) > DedupTTL {
			delete(r.dedup, key)
		}
	}
}

func shortError(reqID any, code, message string) errorResponse {
	if len(message) > maxMessageBytes {
		message = message[:maxMessageBytes]
	}
	return errorResponse{ReqID: reqID, OK: false, Error: errorBody{Code: code, Message: message}}
}

// encodeCapped falls back to a too_long error when payload exceeds MaxResponseBytes.
func encodeCapped(payload any, reqID any) []byte {
	raw := encode(payload)
	if len(raw) <= MaxResponseBytes {
		return raw
	}
	return encode(shortError(reqID, CodeBadRequest, "too_long"))
}

func encode(payload any) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(shortError(nil, CodeVisionFailed, "internal"))
	}
	return raw
}

func commandName(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.ToUpper(s)
	}
	encoded, _ := json.Marshal(v)
	return strings.ToUpper(string(encoded))
}

func decodeArgs(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}
	}
	return args
}

func scanFrames(args map[string]any) int {
	mode, _ := args["mode"].(string)
	frames := 3
	if strings.EqualFold(mode, "FAST") {
		frames = 1
	}
	if v, ok := args["frames"].(float64); ok {
		frames = int(v)
	}

	if frames < 1 {
		return 1
	}
	if frames > maxScanFrames {
		return maxScanFrames
	}
	return frames
}

func normalizeScene(scene Scene) Scene {
	if scene.Person == "" {
		scene.Person = PersonNone
	}
	if scene.Objects == nil {
		scene.Objects = []string{}
	}
	return scene
}

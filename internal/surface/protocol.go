package surface

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope types. Host to surface: ping, navigate, message, trace.
// Surface to host: pong, ready, did-finish-load, load-failed, trace, message.
const (
	TypePing          = "ping"
	TypePong          = "pong"
	TypeNavigate      = "navigate"
	TypeMessage       = "message"
	TypeTrace         = "trace"
	TypeReady         = "ready"
	TypeDidFinishLoad = "did-finish-load"
	TypeLoadFailed    = "load-failed"
)

// Envelope is one JSON line on the surface streams.
type Envelope struct {
	Type    string            `json:"type"`
	ID      uint64            `json:"id,omitempty"`
	URL     string            `json:"url,omitempty"`
	Channel string            `json:"channel,omitempty"`
	Args    []json.RawMessage `json:"args,omitempty"`
	Trace   string            `json:"trace,omitempty"`
	Reason  string            `json:"reason,omitempty"`
	Code    int               `json:"code,omitempty"`
}

// EncodeArgs marshals message arguments.
func EncodeArgs(args ...any) ([]json.RawMessage, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]json.RawMessage, 0, len(args))
	for i, a := range args {
		data, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// Marshal encodes e as a single line, including the trailing newline.
func (e Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s envelope: %w", e.Type, err)
	}
	return append(data, '\n'), nil
}

// ParseEnvelope decodes one line.
func ParseEnvelope(line []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(line, &e); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse envelope: %w", err)
	}
	if e.Type == "" {
		return Envelope{}, fmt.Errorf("envelope has no type")
	}
	return e, nil
}

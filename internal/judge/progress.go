package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// UpdateEvent is the only envelope event that changes progress.
const UpdateEvent = "update"

// ErrMalformedEnvelope is returned when a push message cannot be decoded.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Progress is the accumulated state of one judging session. Percentage is
// always within 0 and 100.
type Progress struct {
	Percentage int    `json:"percentage"`
	MemoryKB   int    `json:"memory_kb"`
	TimeMS     int    `json:"time_ms"`
	Result     Result `json:"result"`
}

// Ended reports whether the session reached a terminal result.
func (p Progress) Ended() bool {
	return p.Result.IsTerminal()
}

// Update carries the fields present in one update payload. Nil means absent.
type Update struct {
	Result   *Result
	Progress *int
	Memory   *int
	Time     *int
}

// Envelope is a decoded push message.
type Envelope struct {
	Event   string
	Channel string
	Data    Update
}

// IsUpdate reports whether the envelope should be merged.
func (e Envelope) IsUpdate() bool {
	return e.Event == UpdateEvent
}

type rawEnvelope struct {
	Event   string          `json:"event"`
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Unescape turns the doubly encoded message the push service sends into
// plain JSON: backslashes are dropped and quote-wrapped braces are unwrapped.
func Unescape(msg string) string {
	msg = strings.ReplaceAll(msg, `\`, "")
	msg = strings.ReplaceAll(msg, `"{`, "{")
	return strings.ReplaceAll(msg, `}"`, "}")
}

// DecodeEnvelope unescapes and decodes a raw push message. Data of events
// other than update is not inspected.
func DecodeEnvelope(msg []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal([]byte(Unescape(string(msg))), &raw); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	env := Envelope{Event: raw.Event, Channel: raw.Channel}
	if !env.IsUpdate() || len(raw.Data) == 0 {
		return env, nil
	}
	upd, err := decodeUpdate(raw.Data)
	if err != nil {
		return Envelope{}, err
	}
	env.Data = upd
	return env, nil
}

func decodeUpdate(data json.RawMessage) (Update, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Update{}, fmt.Errorf("%w: update data: %w", ErrMalformedEnvelope, err)
	}
	var upd Update
	for key, dst := range map[string]**int{"progress": &upd.Progress, "memory": &upd.Memory, "time": &upd.Time} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		n, err := decodeInt(raw)
		if err != nil {
			return Update{}, fmt.Errorf("%w: %s: %w", ErrMalformedEnvelope, key, err)
		}
		*dst = &n
	}
	if raw, ok := fields["result"]; ok {
		n, err := decodeInt(raw)
		if err != nil {
			return Update{}, fmt.Errorf("%w: result: %w", ErrMalformedEnvelope, err)
		}
		r, err := ParseResult(n)
		if err != nil {
			return Update{}, err
		}
		upd.Result = &r
	}
	return upd, nil
}

// decodeInt accepts a JSON number or a quoted number.
func decodeInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

// Tracker owns the progress of a single session. It is not safe for
// concurrent use; the receive loop is its only writer.
type Tracker struct {
	state Progress
}

// NewTracker starts at PendingJudge with zero progress.
func NewTracker() *Tracker {
	return &Tracker{state: Progress{Result: PendingJudge}}
}

// Apply merges env into the state. Non-update envelopes are ignored. It
// reports whether anything was merged.
func (t *Tracker) Apply(env Envelope) bool {
	if !env.IsUpdate() {
		return false
	}
	d := env.Data
	if d.Result != nil {
		t.state.Result = *d.Result
	}
	if d.Progress != nil {
		t.state.Percentage = min(max(*d.Progress, 0), 100)
	}
	if d.Memory != nil {
		t.state.MemoryKB = *d.Memory
	}
	if d.Time != nil {
		t.state.TimeMS = *d.Time
	}
	return true
}

// Progress returns a copy of the current state.
func (t *Tracker) Progress() Progress {
	return t.state
}

// Ended reports whether the tracked session is over.
func (t *Tracker) Ended() bool {
	return t.state.Ended()
}

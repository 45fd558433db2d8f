package supervisor

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Topic is the bus topic carrying StatusEvents to the GUI.
const Topic = "server-status"

// Kind tags a StatusEvent with where it came from.
type Kind string

const (
	KindStdout     Kind = "stdout"
	KindStderr     Kind = "stderr"
	KindError      Kind = "error"
	KindTerminated Kind = "terminated"
	KindOther      Kind = "other"
)

// ReceiverCancelled is the payload of the trailing KindOther event sent once
// the child's output channel closes.
const ReceiverCancelled = "receiver cancelled"

// StatusEvent is one piece of server telemetry forwarded to the GUI.
type StatusEvent struct {
	Kind    Kind
	Payload string
}

// MarshalJSON encodes the event as the [kind, payload] pair the GUI expects.
func (e StatusEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{string(e.Kind), e.Payload})
}

// UnmarshalJSON accepts the [kind, payload] pair.
func (e *StatusEvent) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("decode status event: %w", err)
	}
	e.Kind, e.Payload = Kind(pair[0]), pair[1]
	return nil
}

// ExitStatus describes how the child ended. Code is nil when the process was
// killed by a signal; Signal is nil otherwise.
type ExitStatus struct {
	Code   *int `json:"code"`
	Signal *int `json:"signal"`
}

func (s ExitStatus) String() string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// outputEvent is what the readers and the waiter hand to the pump.
type outputEvent struct {
	kind   Kind
	data   []byte
	err    error
	status ExitStatus
}

// classify turns a raw output event into what the GUI sees.
func classify(ev outputEvent) StatusEvent {
	switch ev.kind {
	case KindStdout, KindStderr:
		return StatusEvent{Kind: ev.kind, Payload: decode(ev.data)}
	case KindError:
		msg := ""
		if ev.err != nil {
			msg = ev.err.Error()
		}
		return StatusEvent{Kind: KindError, Payload: msg}
	case KindTerminated:
		return StatusEvent{Kind: KindTerminated, Payload: ev.status.String()}
	default:
		return StatusEvent{Kind: KindOther}
	}
}

// decode passes valid UTF-8 through and degrades anything else to "".
func decode(b []byte) string {
	if !utf8.Valid(b) {
		return ""
	}
	return string(b)
}

package surface

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Inbound event names.
const (
	EventWillAppear         = "willAppear"
	EventWillDisappear      = "willDisappear"
	EventDidReceiveSettings = "didReceiveSettings"
	EventKeyDown            = "keyDown"
)

// Outbound event names.
const (
	EventShowAlert = "showAlert"
	EventShowOK    = "showOk"
	EventOpenURL   = "openUrl"
)

// Settings are the per-button options edited in the host's settings UI.
type Settings struct {
	// Endpoint is the URL to probe. Empty disables probing.
	Endpoint string `json:"endpoint"`

	// HealthyStatusCode is the status considered healthy. Zero means default.
	HealthyStatusCode FlexInt `json:"healthyStatusCode"`

	// CheckSeconds is the minimum seconds between probes. Zero means default.
	CheckSeconds FlexInt `json:"checkSeconds"`
}

// FlexInt decodes from a JSON number or a numeric string. Blank strings,
// null and unparsable values decode as zero.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(n)
	return nil
}

// Int returns the value as an int.
func (f FlexInt) Int() int {
	return int(f)
}

// Event is an inbound message from the host.
type Event struct {
	Event   string       `json:"event"`
	Action  string       `json:"action,omitempty"`
	Context string       `json:"context,omitempty"`
	Device  string       `json:"device,omitempty"`
	Payload EventPayload `json:"payload"`
}

// EventPayload is the subset of the host payload PulseDeck reads.
type EventPayload struct {
	Settings Settings `json:"settings"`
}

// DecodeEvent parses one inbound frame.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Event == "" {
		return Event{}, errors.New("event has no name")
	}
	return ev, nil
}

// message is an outbound frame.
type message struct {
	Event   string          `json:"event"`
	UUID    string          `json:"uuid,omitempty"`
	Context string          `json:"context,omitempty"`
	Payload *messagePayload `json:"payload,omitempty"`
}

type messagePayload struct {
	URL string `json:"url,omitempty"`
}

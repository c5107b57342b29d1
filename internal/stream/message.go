package stream

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/canxphung/DA_CNPM_242/agrisense/internal/models"
)

// Kind tags a classified inbound frame
type Kind int

const (
	KindMalformed Kind = iota
	KindSensor
	KindAlert
	KindAlertBacklog
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindSensor:
		return "sensor"
	case KindAlert:
		return "alert"
	case KindAlertBacklog:
		return "recent_alerts"
	case KindUnknown:
		return "unknown"
	default:
		return "malformed"
	}
}

// Wire type tags
const (
	typeSensor       = "sensor"
	typeAlert        = "alert"
	typeRecentAlerts = "recent_alerts"
	typeDashboard    = "dashboard"
)

// Message is one classified frame. Exactly one payload field is set,
// matching Kind; Err explains a KindMalformed frame.
type Message struct {
	Kind    Kind
	Type    string
	Sample  *models.Sample
	Alert   *models.Alert
	Backlog []models.Alert // as delivered, newest first
	Err     error
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type identify struct {
	Type string `json:"type"`
}

// identifyFrame is sent as-is once per connection
var identifyFrame = mustMarshal(identify{Type: typeDashboard})

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

var errNoData = errors.New("missing data payload")

// Classify decodes a raw frame into a tagged message. It never fails: frames
// that cannot be decoded come back as KindMalformed.
func Classify(raw []byte) Message {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return malformed("", err)
	}

	switch env.Type {
	case typeSensor:
		if isEmpty(env.Data) {
			return malformed(env.Type, errNoData)
		}
		var s models.Sample
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return malformed(env.Type, err)
		}
		return Message{Kind: KindSensor, Type: env.Type, Sample: &s}

	case typeAlert:
		if isEmpty(env.Data) {
			return malformed(env.Type, errNoData)
		}
		var a models.Alert
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return malformed(env.Type, err)
		}
		return Message{Kind: KindAlert, Type: env.Type, Alert: &a}

	case typeRecentAlerts:
		if isEmpty(env.Data) {
			return malformed(env.Type, errNoData)
		}
		var backlog []models.Alert
		if err := json.Unmarshal(env.Data, &backlog); err != nil {
			return malformed(env.Type, err)
		}
		return Message{Kind: KindAlertBacklog, Type: env.Type, Backlog: backlog}
	}
	return Message{Kind: KindUnknown, Type: env.Type}
}

func malformed(typ string, err error) Message {
	if typ != "" {
		err = fmt.Errorf("%s: %w", typ, err)
	}
	return Message{Kind: KindMalformed, Type: typ, Err: err}
}

func isEmpty(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

package telemetry

import (
	"encoding/json"
	"fmt"

	"proctor-quiz-service/internal/domain"
)

// Wire message types exchanged with the analysis service.
const (
	TypeStartAnalysis = "start_analysis"
	TypeStopAnalysis  = "stop_analysis"
	TypeFrame         = "frame"
	TypeEmotionData   = "emotion_data"
	TypeAlert         = "alert"
	TypeConnected     = "connected"
)

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(outbound{Type: msgType, Payload: payload})
}

type wireHeadPose struct {
	Direction  *domain.Direction `json:"direction"`
	Horizontal *domain.Direction `json:"horizontal"`
	Vertical   *domain.Direction `json:"vertical"`
}

type wireSample struct {
	FaceCount *int               `json:"faceCount"`
	HeadPose  *wireHeadPose      `json:"headPose"`
	Emotions  map[string]float64 `json:"emotions"`
	Timestamp *float64           `json:"timestamp"`
}

type wireAlert struct {
	ID        string          `json:"id"`
	Type      domain.Severity `json:"type"`
	Message   string          `json:"message"`
	Timestamp float64         `json:"timestamp"`
}

// EventKind tags a decoded inbound event.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventTelemetry
	EventAlert
)

// Event is one decoded inbound message.
type Event struct {
	Kind   EventKind
	Sample domain.TelemetrySample
	Alert  domain.Alert
}

// Decode parses and validates one inbound message. Messages of unknown type
// decode to EventIgnored; payloads with the wrong shape return ErrMalformedPayload.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	switch env.Type {
	case TypeEmotionData:
		sample, err := decodeSample(env.Payload)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventTelemetry, Sample: sample}, nil
	case TypeAlert:
		var wa wireAlert
		if err := json.Unmarshal(env.Payload, &wa); err != nil {
			return Event{}, fmt.Errorf("%w: alert: %v", domain.ErrMalformedPayload, err)
		}
		a := domain.Alert{ID: wa.ID, Type: wa.Type, Message: wa.Message, Timestamp: wa.Timestamp}
		if err := a.Validate(); err != nil {
			return Event{}, err
		}
		return Event{Kind: EventAlert, Alert: a}, nil
	case "":
		return Event{}, fmt.Errorf("%w: missing type", domain.ErrMalformedPayload)
	default:
		return Event{Kind: EventIgnored}, nil
	}
}

func decodeSample(raw json.RawMessage) (domain.TelemetrySample, error) {
	var ws wireSample
	if err := json.Unmarshal(raw, &ws); err != nil {
		return domain.TelemetrySample{}, fmt.Errorf("%w: emotion_data: %v", domain.ErrMalformedPayload, err)
	}
	if ws.FaceCount == nil || ws.HeadPose == nil || ws.Timestamp == nil {
		return domain.TelemetrySample{}, fmt.Errorf("%w: emotion_data missing fields", domain.ErrMalformedPayload)
	}
	hp := ws.HeadPose
	if hp.Direction == nil || hp.Horizontal == nil || hp.Vertical == nil {
		return domain.TelemetrySample{}, fmt.Errorf("%w: headPose missing fields", domain.ErrMalformedPayload)
	}
	sample := domain.TelemetrySample{
		Timestamp: *ws.Timestamp,
		FaceCount: *ws.FaceCount,
		HeadPose: domain.HeadPose{
			Direction:  *hp.Direction,
			Horizontal: *hp.Horizontal,
			Vertical:   *hp.Vertical,
		},
		Emotions: ws.Emotions,
	}
	if sample.Emotions == nil {
		sample.Emotions = map[string]float64{}
	}
	if err := sample.Validate(); err != nil {
		return domain.TelemetrySample{}, err
	}
	return sample, nil
}

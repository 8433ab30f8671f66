package telemetry

import (
	"errors"
	"testing"

	"proctor-quiz-service/internal/domain"
)

func TestDecodeEmotionData(t *testing.T) {
	raw := `{"type":"emotion_data","payload":{"faceCount":1,"headPose":{"direction":"left","horizontal":"left","vertical":"straight"},"emotions":{"happy":0,"neutral":1,"thinking":0.8},"timestamp":1700000000.5}}`
	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != EventTelemetry {
		t.Fatalf("expected telemetry event, got %v", ev.Kind)
	}
	if ev.Sample.FaceCount != 1 || ev.Sample.HeadPose.Horizontal != domain.DirectionLeft || ev.Sample.Emotions["thinking"] != 0.8 {
		t.Fatalf("unexpected sample %+v", ev.Sample)
	}
}

func TestDecodeAlert(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"alert","payload":{"id":"a1","type":"warning","message":"Look at the screen","timestamp":12}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Kind != EventAlert || ev.Alert.ID != "a1" || ev.Alert.Type != domain.SeverityWarning {
		t.Fatalf("unexpected alert %+v", ev)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `{"type":`,
		"missing type":     `{"payload":{}}`,
		"missing headPose": `{"type":"emotion_data","payload":{"faceCount":1,"emotions":{},"timestamp":1}}`,
		"string faces":     `{"type":"emotion_data","payload":{"faceCount":"one","headPose":{"direction":"straight","horizontal":"straight","vertical":"straight"},"timestamp":1}}`,
		"bad direction":    `{"type":"emotion_data","payload":{"faceCount":1,"headPose":{"direction":"sideways","horizontal":"straight","vertical":"straight"},"timestamp":1}}`,
		"alert severity":   `{"type":"alert","payload":{"id":"a","type":"fatal","message":"x"}}`,
	}
	for name, raw := range cases {
		if _, err := Decode([]byte(raw)); !errors.Is(err, domain.ErrMalformedPayload) {
			t.Fatalf("%s: expected malformed payload, got %v", name, err)
		}
	}
}

func TestDecodeIgnoresUnknownTypes(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"connected","payload":{"message":"Connected"}}`))
	if err != nil || ev.Kind != EventIgnored {
		t.Fatalf("expected ignored event, got %+v %v", ev, err)
	}
}

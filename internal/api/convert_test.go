package api

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"promptreel/internal/generation"
	"promptreel/internal/services"
)

func TestGenerateRequestWireShape(t *testing.T) {
	req := NewGenerateRequest("A sunset", generation.DefaultConfig())
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"prompt":"A sunset","duration":10,"aspectRatio":"16:9","style":"cinematic","quality":"standard"}`
	if string(data) != want {
		t.Fatalf("wire = %s, want %s", data, want)
	}
}

func TestGenerateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     GenerateRequest
		wantErr bool
	}{
		{"valid", GenerateRequest{Prompt: "A sunset", Duration: 10, AspectRatio: "16:9"}, false},
		{"empty quality defaults", GenerateRequest{Prompt: "x", Duration: 5, AspectRatio: "1:1", Quality: ""}, false},
		{"blank prompt", GenerateRequest{Prompt: "   ", Duration: 10, AspectRatio: "16:9"}, true},
		{"long prompt", GenerateRequest{Prompt: strings.Repeat("a", 1001), Duration: 10, AspectRatio: "16:9"}, true},
		{"duration 7", GenerateRequest{Prompt: "x", Duration: 7, AspectRatio: "16:9"}, true},
		{"bad aspect", GenerateRequest{Prompt: "x", Duration: 10, AspectRatio: "4:3"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}

func TestResponseBuildersOmitEmptyFields(t *testing.T) {
	tests := []struct {
		name string
		resp GenerateResponse
		want string
	}{
		{"completed", Completed("https://cdn/v.mp4"), `{"success":true,"videoUrl":"https://cdn/v.mp4","status":"completed"}`},
		{"processing", Processing("op-1", 90*time.Second), `{"success":true,"taskId":"op-1","status":"processing","estimatedTime":90}`},
		{"provider failure", Failed("content policy", true), `{"success":false,"error":"content policy","status":"failed"}`},
		{"transport failure", Failed("upstream unreachable", false), `{"success":false,"error":"upstream unreachable"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.resp)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Fatalf("wire = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestNewHealthResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	resp := NewHealthResponse("promptreel-proxy", nil, now)
	if resp.Status != "healthy" || resp.Service != "promptreel-proxy" {
		t.Fatalf("unexpected identity: %+v", resp)
	}
	if resp.Timestamp != "2026-03-01T11:00:00Z" {
		t.Fatalf("timestamp = %q", resp.Timestamp)
	}
	if resp.Models == nil || len(resp.Models) != 0 {
		t.Fatalf("models should be an empty list, got %#v", resp.Models)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"models":[]`) {
		t.Fatalf("health wire should carry an empty models list: %s", data)
	}
	if resp.MaxDuration != 30 || resp.MaxPromptLength != 1000 {
		t.Fatalf("limits = %d/%d", resp.MaxDuration, resp.MaxPromptLength)
	}
	if len(resp.SupportedFormats) != 1 || resp.SupportedFormats[0] != "mp4" {
		t.Fatalf("formats = %v", resp.SupportedFormats)
	}
}

func TestNewHealthResponseCopiesModels(t *testing.T) {
	models := []string{"veo-2"}
	resp := NewHealthResponse("promptreel-proxy", models, time.Now())
	models[0] = "changed"
	if len(resp.Models) != 1 || resp.Models[0] != "veo-2" {
		t.Fatalf("models = %v", resp.Models)
	}
	empty := NewHealthResponse("promptreel-proxy", []string{}, time.Now())
	if empty.Models == nil {
		t.Fatal("empty models should stay a non-nil list")
	}
}

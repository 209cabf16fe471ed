package assistant

import (
	"errors"
	"strings"
	"testing"

	"med-assistant/internal/inference"
)

func TestBuildSystemPrompt(t *testing.T) {
	tests := []struct {
		name     string
		flags    Flags
		contains []string
		excludes []string
	}{
		{"base only", Flags{}, []string{basePrompt}, []string{medicineClause, doctorClause}},
		{"medicine", Flags{IncludeMedicineAdvice: true}, []string{basePrompt, medicineClause}, []string{doctorClause}},
		{"doctor", Flags{IncludeDoctorRecommendation: true}, []string{basePrompt, doctorClause}, []string{medicineClause}},
		{"both", Flags{IncludeMedicineAdvice: true, IncludeDoctorRecommendation: true}, []string{basePrompt, medicineClause, doctorClause}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSystemPrompt(tt.flags)
			if !strings.HasPrefix(got, basePrompt) {
				t.Errorf("prompt must start with the base preamble: %q", got)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("missing %q", s)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("unexpected %q", s)
				}
			}
		})
	}

	if BuildSystemPrompt(Flags{}) != basePrompt {
		t.Error("flags off must yield exactly the base preamble")
	}
}

func TestWarning(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"transient chat", &inference.Error{Capability: inference.CapabilityChat, Kind: inference.Transient}, "⚠️ Error: The chat service is temporarily unavailable, please try again."},
		{"permanent caption", &inference.Error{Capability: inference.CapabilityCaption, Kind: inference.Permanent}, "⚠️ Error: The image description service returned an unexpected response."},
		{"unknown capability", &inference.Error{Capability: "ocr", Kind: inference.Permanent}, "⚠️ Error: A remote service returned an unexpected response."},
		{"untyped error", errors.New("boom"), "⚠️ Error: The assistant could not complete the request."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Warning(tt.err); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectKind(t *testing.T) {
	tests := map[string]Kind{
		"application/pdf": KindReport,
		"image/png":       KindImage,
		"IMAGE/JPEG":      KindImage,
		"text/plain":      "",
	}
	for in, want := range tests {
		if got := DetectKind(in); got != want {
			t.Errorf("DetectKind(%q) = %q, want %q", in, got, want)
		}
	}
}

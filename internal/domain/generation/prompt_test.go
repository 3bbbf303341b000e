package generation

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/laudos/internal/domain"
)

func TestNewAttachment_MediaTypes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"image/png", "image/png"},
		{"image/webp", "image/webp"},
		{"application/pdf", MediaTypePDF},
		{"", MediaTypeDefault},
		{"text/plain", MediaTypeDefault},
	}
	for _, tc := range tests {
		a, err := NewAttachment(tc.in, "AAAA")
		if err != nil {
			t.Fatalf("NewAttachment(%q): %v", tc.in, err)
		}
		if a.MediaType() != tc.want {
			t.Errorf("NewAttachment(%q).MediaType() = %q, want %q", tc.in, a.MediaType(), tc.want)
		}
	}
}

func TestNewAttachment_EmptyData(t *testing.T) {
	if _, err := NewAttachment("image/png", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAttachment_DataURL(t *testing.T) {
	a, _ := NewAttachment("image/png", "iVBOR")
	if got := a.DataURL(); got != "data:image/png;base64,iVBOR" {
		t.Errorf("DataURL() = %q", got)
	}
	if a.IsPDF() {
		t.Error("IsPDF() = true for image")
	}
}

func TestNewPrompt(t *testing.T) {
	p, err := NewPrompt("", "descreva", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Message() != "descreva" || p.System() != "" {
		t.Errorf("unexpected prompt: %+v", p)
	}

	if _, err := NewPrompt("sys", "", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

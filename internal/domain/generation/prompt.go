package generation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/laudos/internal/domain"
)

// Attachment media types.
const (
	MediaTypePDF     = "application/pdf"
	MediaTypeDefault = "image/jpeg"
)

// Attachment is a base64-encoded file sent alongside the user message.
type Attachment struct {
	mediaType string
	data      string
}

// NewAttachment normalizes the media type: non-image types other than PDF fall back to
// image/jpeg.
func NewAttachment(mediaType, data string) (Attachment, error) {
	if data == "" {
		return Attachment{}, fmt.Errorf("attachment data is required: %w", domain.ErrValidation)
	}
	if mediaType != MediaTypePDF && !strings.HasPrefix(mediaType, "image/") {
		mediaType = MediaTypeDefault
	}
	return Attachment{mediaType: mediaType, data: data}, nil
}

// MediaType returns the normalized MIME type.
func (a Attachment) MediaType() string { return a.mediaType }

// Data returns the base64 payload.
func (a Attachment) Data() string { return a.data }

// IsPDF reports whether the attachment is a PDF document.
func (a Attachment) IsPDF() bool { return a.mediaType == MediaTypePDF }

// DataURL renders the attachment as a data URL.
func (a Attachment) DataURL() string { return "data:" + a.mediaType + ";base64," + a.data }

// Prompt is a validated generation request.
type Prompt struct {
	system      string
	message     string
	attachments []Attachment
}

// NewPrompt validates a prompt. The user message is required; system is optional.
func NewPrompt(system, message string, attachments []Attachment) (Prompt, error) {
	if message == "" {
		return Prompt{}, fmt.Errorf("userMsg is required: %w", domain.ErrValidation)
	}
	return Prompt{system: system, message: message, attachments: attachments}, nil
}

// System returns the system instruction (may be empty).
func (p *Prompt) System() string { return p.system }

// Message returns the user message.
func (p *Prompt) Message() string { return p.message }

// Attachments returns the files sent with the message.
func (p *Prompt) Attachments() []Attachment { return p.attachments }

// Completion is the generated text and its token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

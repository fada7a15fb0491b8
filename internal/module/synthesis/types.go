package synthesis

import "context"

// Request carries the source image and the editing instruction.
type Request struct {
	ImageData   []byte `json:"image_data"`
	MimeType    string `json:"mime_type"`
	Instruction string `json:"instruction"`
}

// Image represents a generated image.
type Image struct {
	Data     []byte `json:"data"`
	MimeType string `json:"mime_type"`
}

// Synthesizer turns a source image plus a text instruction into a new image.
// Failures are reported through the sentinel errors in errors.go; callers
// branch with errors.Is, never by inspecting error text.
type Synthesizer interface {
	// Name returns the provider name for logging and metrics.
	Name() string

	// Synthesize generates an edited image. It returns ErrContentBlocked when
	// the provider refuses on policy grounds, ErrNoImage when the response
	// carried no image payload, ErrRateLimited on provider throttling, and a
	// plain error for any other fault.
	Synthesize(ctx context.Context, req *Request) (*Image, error)
}

package vision

import (
	"context"
	"fmt"
)

// Image is one photo payload sent to the vision model. MIME is the validated
// content type of the encoded bytes.
type Image struct {
	Data []byte
	MIME string
}

// Analyzer sends one multimodal request (instructions, then labeled BEFORE
// images, then labeled AFTER images) and returns the model's raw text.
// Adapters make a single attempt: no retry, no provider-side backoff. A
// transport or provider error is fatal to the inspection that issued it.
type Analyzer interface {
	Analyze(ctx context.Context, before, after []Image) (string, error)
}

// BeforeLabel and AfterLabel produce the 1-based text labels that precede
// each image in the request. The AFTER numbering is what the model's
// image_index values refer back to.
func BeforeLabel(i int) string {
	return fmt.Sprintf("BEFORE image %d:", i)
}

func AfterLabel(i int) string {
	return fmt.Sprintf("AFTER image %d:", i)
}

package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dbeaufort/fleetlens/internal/vision"
)

type GeminiAnalyzer struct {
	apiKey string
	model  string
}

func NewGeminiAnalyzer(apiKey, model string) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		apiKey: strings.TrimSpace(apiKey),
		model:  strings.TrimSpace(model),
	}
}

// Analyze sends the instruction text followed by the labeled BEFORE and AFTER
// images in order. One round trip: provider errors surface immediately.
func (a *GeminiAnalyzer) Analyze(ctx context.Context, before, after []vision.Image) (string, error) {
	if a.apiKey == "" {
		return "", errors.New("GEMINI_API_KEY is empty")
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer func() {
		if err := cl.Close(); err != nil {
			slog.Error("failed to close gemini client", "error", err)
		}
	}()

	m := cl.GenerativeModel(a.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	parts := make([]genai.Part, 0, 1+2*(len(before)+len(after)))
	parts = append(parts, genai.Text(vision.AnalysisPrompt))
	for i, img := range before {
		parts = append(parts,
			genai.Text(vision.BeforeLabel(i+1)),
			&genai.Blob{MIMEType: img.MIME, Data: img.Data},
		)
	}
	for i, img := range after {
		parts = append(parts,
			genai.Text(vision.AfterLabel(i+1)),
			&genai.Blob{MIMEType: img.MIME, Data: img.Data},
		)
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned no usable text")
	}
	return text, nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }

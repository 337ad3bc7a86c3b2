package claude

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/dbeaufort/fleetlens/internal/vision"
)

// maxTokens leaves headroom for a multi-damage report with boxes and
// descriptions; a typical response is well under half of this.
const maxTokens = 4096

type ClaudeAnalyzer struct {
	client *anthropic.Client
	model  string
}

func NewClaudeAnalyzer(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeAnalyzer {
	return &ClaudeAnalyzer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (a *ClaudeAnalyzer) Analyze(ctx context.Context, before, after []vision.Image) (string, error) {
	content := make([]anthropic.MessageContent, 0, 1+2*(len(before)+len(after)))
	content = append(content, anthropic.NewTextMessageContent(vision.AnalysisPrompt))
	for i, img := range before {
		content = append(content,
			anthropic.NewTextMessageContent(vision.BeforeLabel(i+1)),
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64, normaliseMIME(img.MIME), img.Data)),
		)
	}
	for i, img := range after {
		content = append(content,
			anthropic.NewTextMessageContent(vision.AfterLabel(i+1)),
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64, normaliseMIME(img.MIME), img.Data)),
		)
	}

	resp, err := a.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(a.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: content,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	text := resp.GetFirstContentText()
	if text == "" {
		return "", fmt.Errorf("claude returned no usable text")
	}
	return text, nil
}

// normaliseMIME maps upload MIME types to the values the Anthropic API
// accepts. Unknown types are coerced to jpeg as the most universally
// supported lossy fallback; callers validate MIME types before this layer.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}

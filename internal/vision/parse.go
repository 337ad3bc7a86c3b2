package vision

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/dbeaufort/fleetlens/internal/domain"
)

// FallbackSummary is the sentinel summary used when the model response cannot
// be parsed.
const FallbackSummary = "Error parsing AI response"

// ParseReport extracts a damage report from the model's raw text. It never
// fails: any decode or structural problem yields the empty fallback report
// with the reason recorded, and the raw text is logged for diagnosis.
func ParseReport(raw string) domain.DamageReport {
	cleaned := stripCodeFences(strings.TrimSpace(raw))

	var probe struct {
		NewDamage             *[]domain.DamageItem `json:"new_damage"`
		TotalEstimatedCostUSD float64              `json:"total_estimated_cost_usd"`
		Summary               string               `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		slog.Error("failed to parse model response", "error", err, "raw", raw)
		return fallbackReport(err.Error())
	}
	if probe.NewDamage == nil {
		slog.Error("model response missing new_damage", "raw", raw)
		return fallbackReport("invalid report structure: missing 'new_damage'")
	}

	// Accepted verbatim: total and summary are trusted as reported, not
	// recomputed from item costs.
	return domain.DamageReport{
		NewDamage:             *probe.NewDamage,
		TotalEstimatedCostUSD: probe.TotalEstimatedCostUSD,
		Summary:               probe.Summary,
	}
}

func fallbackReport(reason string) domain.DamageReport {
	return domain.DamageReport{
		NewDamage:  []domain.DamageItem{},
		Summary:    FallbackSummary,
		ParseError: reason,
	}
}

// stripCodeFences removes one leading and one trailing markdown code fence if
// present. Models often wrap JSON in a fenced block despite instructions.
func stripCodeFences(s string) string {
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

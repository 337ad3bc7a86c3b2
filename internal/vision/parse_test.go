package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validResponse = `{
	"new_damage": [
		{
			"car_part": "rear bumper",
			"damage_type": "dent",
			"severity": "major",
			"recommended_action": "repair",
			"estimated_cost_usd": 450.0,
			"description": "Deep dent on rear bumper",
			"image_index": 2,
			"bounding_box": {"x_min_pct": 0.1, "y_min_pct": 0.1, "x_max_pct": 0.5, "y_max_pct": 0.5}
		}
	],
	"total_estimated_cost_usd": 450.0,
	"summary": "1 new damage detected on rear bumper"
}`

func TestParseReportValid(t *testing.T) {
	report := ParseReport(validResponse)

	require.Len(t, report.NewDamage, 1)
	item := report.NewDamage[0]
	assert.Equal(t, "rear bumper", item.CarPart)
	assert.Equal(t, "dent", item.DamageType)
	assert.Equal(t, 2, item.ImageIndex)
	assert.Equal(t, 450.0, item.EstimatedCostUSD)
	assert.Equal(t, 450.0, report.TotalEstimatedCostUSD)
	assert.Empty(t, report.ParseError)

	// Trusted total matches the recomputed sum for this response; the parser
	// must not have altered either side.
	assert.Equal(t, report.TotalEstimatedCostUSD, report.SumItemCosts())
}

func TestParseReportStripsJSONFence(t *testing.T) {
	report := ParseReport("```json\n" + validResponse + "\n```")

	require.Len(t, report.NewDamage, 1)
	assert.Empty(t, report.ParseError)
}

func TestParseReportStripsBareFence(t *testing.T) {
	report := ParseReport("```\n" + validResponse + "\n```")

	require.Len(t, report.NewDamage, 1)
	assert.Empty(t, report.ParseError)
}

func TestParseReportGarbageYieldsFallback(t *testing.T) {
	report := ParseReport("I could not find any damage, sorry!")

	assert.Empty(t, report.NewDamage)
	assert.NotNil(t, report.NewDamage)
	assert.Zero(t, report.TotalEstimatedCostUSD)
	assert.Equal(t, FallbackSummary, report.Summary)
	assert.NotEmpty(t, report.ParseError)
}

func TestParseReportMissingNewDamageIsStructuralError(t *testing.T) {
	report := ParseReport(`{"total_estimated_cost_usd": 100, "summary": "looks fine"}`)

	assert.Equal(t, FallbackSummary, report.Summary)
	assert.Contains(t, report.ParseError, "new_damage")
	assert.Zero(t, report.TotalEstimatedCostUSD)
}

func TestParseReportEmptyDamageAccepted(t *testing.T) {
	report := ParseReport(`{"new_damage": [], "total_estimated_cost_usd": 0, "summary": "No new damage detected."}`)

	assert.Empty(t, report.NewDamage)
	assert.Equal(t, "No new damage detected.", report.Summary)
	assert.Empty(t, report.ParseError)
}

func TestParseReportTotalTrustedVerbatim(t *testing.T) {
	// The reported total disagrees with the item sum; both must survive
	// untouched so drift stays observable.
	report := ParseReport(`{
		"new_damage": [
			{"car_part": "door", "damage_type": "scratch", "severity": "minor",
			 "recommended_action": "repaint", "estimated_cost_usd": 100.0,
			 "description": "", "image_index": 1,
			 "bounding_box": {"x_min_pct": 0.1, "y_min_pct": 0.1, "x_max_pct": 0.2, "y_max_pct": 0.2}}
		],
		"total_estimated_cost_usd": 999.0,
		"summary": "inconsistent"
	}`)

	assert.Equal(t, 999.0, report.TotalEstimatedCostUSD)
	assert.Equal(t, 100.0, report.SumItemCosts())
}

package domain

import "strings"

// Severity is the model-reported severity of a single damage item. Values
// outside the known set collapse to SeverityUnknown so downstream mappings
// (annotation color, sorting) stay total.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityMajor    Severity = "major"
	SeverityUnknown  Severity = "unknown"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityMinor, SeverityModerate, SeverityMajor:
		return true
	}
	return false
}

// NormalizeSeverity maps free-form model output onto the closed severity set.
func NormalizeSeverity(raw string) Severity {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s
	}
	return SeverityUnknown
}

type DamageType string

const (
	DamageDent    DamageType = "dent"
	DamageScratch DamageType = "scratch"
	DamageCrack   DamageType = "crack"
	DamageBroken  DamageType = "broken"
	DamagePaint   DamageType = "paint_damage"
	DamageOther   DamageType = "other"
)

func (d DamageType) IsValid() bool {
	switch d {
	case DamageDent, DamageScratch, DamageCrack, DamageBroken, DamagePaint:
		return true
	}
	return false
}

func NormalizeDamageType(raw string) DamageType {
	d := DamageType(strings.ToLower(strings.TrimSpace(raw)))
	if d.IsValid() {
		return d
	}
	return DamageOther
}

type RecommendedAction string

const (
	ActionRepair  RecommendedAction = "repair"
	ActionRepaint RecommendedAction = "repaint"
	ActionReplace RecommendedAction = "replace"
	ActionUnknown RecommendedAction = "unknown"
)

func (a RecommendedAction) IsValid() bool {
	switch a {
	case ActionRepair, ActionRepaint, ActionReplace:
		return true
	}
	return false
}

func NormalizeAction(raw string) RecommendedAction {
	a := RecommendedAction(strings.ToLower(strings.TrimSpace(raw)))
	if a.IsValid() {
		return a
	}
	return ActionUnknown
}

// BoundingBox locates damage in an image as fractions of width/height, so the
// coordinates are independent of the actual pixel resolution.
type BoundingBox struct {
	XMinPct float64 `json:"x_min_pct"`
	YMinPct float64 `json:"y_min_pct"`
	XMaxPct float64 `json:"x_max_pct"`
	YMaxPct float64 `json:"y_max_pct"`
}

// IsValid reports whether the box is well-formed: both edges inside [0,1]
// and max strictly greater than min on each axis.
func (b BoundingBox) IsValid() bool {
	return b.XMinPct >= 0 && b.XMinPct < b.XMaxPct && b.XMaxPct <= 1 &&
		b.YMinPct >= 0 && b.YMinPct < b.YMaxPct && b.YMaxPct <= 1
}

// DamageItem is one detected difference between the BEFORE and AFTER state.
// ImageIndex is 1-based and refers to the ordered AFTER image list.
type DamageItem struct {
	CarPart           string      `json:"car_part"`
	DamageType        string      `json:"damage_type"`
	Severity          string      `json:"severity"`
	RecommendedAction string      `json:"recommended_action"`
	EstimatedCostUSD  float64     `json:"estimated_cost_usd"`
	Description       string      `json:"description"`
	ImageIndex        int         `json:"image_index"`
	BoundingBox       BoundingBox `json:"bounding_box"`
}

// DamageReport is the model's full assessment. TotalEstimatedCostUSD is
// trusted as reported and deliberately not recomputed from item costs.
type DamageReport struct {
	NewDamage             []DamageItem `json:"new_damage"`
	TotalEstimatedCostUSD float64      `json:"total_estimated_cost_usd"`
	Summary               string       `json:"summary"`
	// ParseError carries the decode failure reason when this report is the
	// fallback produced from an unparseable model response.
	ParseError string `json:"error,omitempty"`
}

// SumItemCosts recomputes the total from individual item costs. Exposed so
// callers and tests can detect drift against the trusted reported total.
func (r DamageReport) SumItemCosts() float64 {
	var sum float64
	for _, d := range r.NewDamage {
		sum += d.EstimatedCostUSD
	}
	return sum
}

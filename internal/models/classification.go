package models

// RiskLabel is the risk class of a match.
type RiskLabel string

const (
	RiskSafe   RiskLabel = "safe"
	RiskRisky  RiskLabel = "risky"
	RiskUnsafe RiskLabel = "unsafe"
)

// ClassificationOrigin records whether a label was derived or set manually.
type ClassificationOrigin string

const (
	OriginComputed   ClassificationOrigin = "computed"
	OriginOverridden ClassificationOrigin = "overridden"
)

// Classification is either Computed(label) or Overridden(label).
type Classification struct {
	Label  RiskLabel            `json:"label"`
	Origin ClassificationOrigin `json:"origin"`
}

// Computed builds a derived classification.
func Computed(label RiskLabel) Classification {
	return Classification{Label: label, Origin: OriginComputed}
}

// Overridden builds a manually set classification.
func Overridden(label RiskLabel) Classification {
	return Classification{Label: label, Origin: OriginOverridden}
}

// IsOverridden reports whether the label came from a manual flag.
func (c Classification) IsOverridden() bool {
	return c.Origin == OriginOverridden
}

// ClassifiedMatch joins a match with its canonical probability and label.
type ClassifiedMatch struct {
	Match          Match            `json:"match"`
	Probability    MatchProbability `json:"probability"`
	Classification Classification   `json:"classification"`
}

// FavoriteProb is a shortcut for the canonical favourite probability.
func (c ClassifiedMatch) FavoriteProb() float64 {
	return c.Probability.FavoriteProb()
}

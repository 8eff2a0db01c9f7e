package domain

import "strings"

// RiskTier is the coarse stockout likelihood classification.
type RiskTier string

const (
	RiskHigh   RiskTier = "High"
	RiskMedium RiskTier = "Medium"
	RiskLow    RiskTier = "Low"
)

// Probability thresholds for risk tiers. Both comparisons are strictly greater-than.
const (
	HighRiskThreshold   = 0.70
	MediumRiskThreshold = 0.40
)

// TierForProbability maps a stockout probability to its risk tier.
func TierForProbability(p float64) RiskTier {
	switch {
	case p > HighRiskThreshold:
		return RiskHigh
	case p > MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Category is an inventory item category label.
type Category string

const (
	CategoryVaccineRelated        Category = "vaccine_related"
	CategoryAntibioticsWoundCare  Category = "antibiotics_wound_care"
	CategoryAntimalarial          Category = "antimalarial"
	CategoryNCDMedication         Category = "ncd_medication"
	CategoryRehydrationSupplement Category = "rehydration_supplement"
	CategoryIVFluid               Category = "iv_fluid"
	CategoryMaternalDelivery      Category = "maternal_delivery"
	CategoryPPEConsumables        Category = "ppe_consumables"
	CategoryDiagnosticsTriage     Category = "diagnostics_triage"
	CategorySymptomaticDrugs      Category = "symptomatic_drugs"
	CategoryAdminInfrastructure   Category = "admin_infrastructure"
	CategoryOther                 Category = "other"
)

// ParseRiskTier returns the tier for a label (case-insensitive).
func ParseRiskTier(label string) (RiskTier, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return RiskHigh, true
	case "medium":
		return RiskMedium, true
	case "low":
		return RiskLow, true
	}
	return "", false
}

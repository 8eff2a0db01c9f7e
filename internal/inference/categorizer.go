package inference

import (
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/domain"
)

type categoryRule struct {
	category domain.Category
	keywords []string
}

// categoryRules are evaluated in order; the first rule with a matching keyword wins.
var categoryRules = []categoryRule{
	{domain.CategoryVaccineRelated, []string{"vaccine", "vaccination", "syringes"}},
	{domain.CategoryAntibioticsWoundCare, []string{"antibiotic", "antifungal", "topical"}},
	{domain.CategoryAntimalarial, []string{"malaria", "artemether", "act"}},
	{domain.CategoryNCDMedication, []string{"insulin", "metformin", "amlodipine"}},
	{domain.CategoryRehydrationSupplement, []string{"ors", "rehydration", "zinc"}},
	{domain.CategoryIVFluid, []string{"iv", "fluid"}},
	{domain.CategoryMaternalDelivery, []string{"delivery", "anc", "sanitary"}},
	{domain.CategoryPPEConsumables, []string{"glove", "mask", "ppe"}},
	{domain.CategoryDiagnosticsTriage, []string{"test kit", "monitor", "thermometer"}},
	{domain.CategorySymptomaticDrugs, []string{"paracetamol", "cough syrup"}},
	{domain.CategoryAdminInfrastructure, []string{"generator", "record book", "leaflet"}},
}

// Categorize assigns an item name to exactly one category by case-insensitive
// substring match. Returns CategoryOther when nothing matches.
func Categorize(itemName string) domain.Category {
	lower := strings.ToLower(itemName)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return domain.CategoryOther
}

// Categories lists the taxonomy in priority order, ending with CategoryOther.
func Categories() []domain.Category {
	out := make([]domain.Category, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		out = append(out, rule.category)
	}
	return append(out, domain.CategoryOther)
}

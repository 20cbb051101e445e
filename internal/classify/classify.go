// Package classify derives coarse business-archetype labels from an insight.
//
// Matching is substring-based over the lower-cased JSON serialisation of the
// whole insight, so a keyword in any field triggers a label. Per-field
// matching can be introduced as another Classifier implementation.
package classify

import (
	"encoding/json"
	"strings"

	"github.com/samber/lo"

	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
)

type RiskTolerance string

const (
	RiskHigh   RiskTolerance = "high"
	RiskMedium RiskTolerance = "medium"
	RiskLow    RiskTolerance = "low"
)

type InnovationLevel string

const (
	InnovationHigh   InnovationLevel = "high"
	InnovationMedium InnovationLevel = "medium"
	InnovationLow    InnovationLevel = "low"
)

type ScaleAmbition string

const (
	ScaleGlobal   ScaleAmbition = "global"
	ScaleRegional ScaleAmbition = "regional"
	ScaleLocal    ScaleAmbition = "local"
)

type Archetype string

const (
	ArchetypeInnovator Archetype = "innovator"
	ArchetypePioneer   Archetype = "pioneer"
	ArchetypeScaler    Archetype = "scaler"
	ArchetypeOptimizer Archetype = "optimizer"
)

type TemplateCategory string

const (
	TemplateTechStartup     TemplateCategory = "tech-startup"
	TemplateConsulting      TemplateCategory = "consulting"
	TemplateEcommerce       TemplateCategory = "ecommerce"
	TemplateGeneralBusiness TemplateCategory = "general-business"
)

const (
	DefaultIndustryVertical  = "general"
	DefaultBusinessModelType = "unspecified"
)

// templateKeywords is checked in order; the first industry keyword wins.
var templateKeywords = []struct {
	keyword  string
	category TemplateCategory
}{
	{"technology", TemplateTechStartup},
	{"consulting", TemplateConsulting},
	{"ecommerce", TemplateEcommerce},
	{"e-commerce", TemplateEcommerce},
}

// Classification is the full label set stored in dream_dna_type.
type Classification struct {
	BusinessArchetype Archetype        `json:"business_archetype"`
	IndustryVertical  string           `json:"industry_vertical"`
	BusinessModelType string           `json:"business_model_type"`
	RiskTolerance     RiskTolerance    `json:"risk_tolerance"`
	InnovationLevel   InnovationLevel  `json:"innovation_level"`
	ScaleAmbition     ScaleAmbition    `json:"scale_ambition"`
	TemplateCategory  TemplateCategory `json:"template_category"`
}

type Classifier interface {
	Classify(in extractor.Insight) Classification
}

// WholeRecord is the default Classifier.
type WholeRecord struct{}

func (WholeRecord) Classify(in extractor.Insight) Classification {
	blob := serialize(in)
	risk := riskFromBlob(blob)
	innovation := innovationFromBlob(blob)
	scale := scaleFromBlob(blob)

	c := Classification{
		BusinessArchetype: archetypeFrom(risk, innovation, scale),
		IndustryVertical:  DefaultIndustryVertical,
		BusinessModelType: DefaultBusinessModelType,
		RiskTolerance:     risk,
		InnovationLevel:   innovation,
		ScaleAmbition:     scale,
		TemplateCategory:  TemplateFor(in),
	}
	if extractor.Present(in.Industry) {
		c.IndustryVertical = strings.ToLower(strings.TrimSpace(*in.Industry))
	}
	if extractor.Present(in.BusinessModel) {
		c.BusinessModelType = strings.ToLower(strings.TrimSpace(*in.BusinessModel))
	}
	return c
}

func RiskToleranceOf(in extractor.Insight) RiskTolerance {
	return riskFromBlob(serialize(in))
}

func InnovationLevelOf(in extractor.Insight) InnovationLevel {
	return innovationFromBlob(serialize(in))
}

func ScaleAmbitionOf(in extractor.Insight) ScaleAmbition {
	return scaleFromBlob(serialize(in))
}

// ArchetypeOf applies the precedence innovation > risk > scale > optimizer.
func ArchetypeOf(in extractor.Insight) Archetype {
	blob := serialize(in)
	return archetypeFrom(riskFromBlob(blob), innovationFromBlob(blob), scaleFromBlob(blob))
}

// TemplateFor maps the insight's industry to a website template category.
func TemplateFor(in extractor.Insight) TemplateCategory {
	industry := strings.ToLower(extractor.Value(in.Industry))
	for _, tk := range templateKeywords {
		if strings.Contains(industry, tk.keyword) {
			return tk.category
		}
	}
	return TemplateGeneralBusiness
}

func riskFromBlob(blob string) RiskTolerance {
	switch {
	case containsAny(blob, "disrupt", "revolutionary"):
		return RiskHigh
	case containsAny(blob, "proven", "traditional"):
		return RiskLow
	default:
		return RiskMedium
	}
}

func innovationFromBlob(blob string) InnovationLevel {
	switch {
	case containsAny(blob, "ai", "technology"):
		return InnovationHigh
	case containsAny(blob, "traditional", "manual"):
		return InnovationLow
	default:
		return InnovationMedium
	}
}

func scaleFromBlob(blob string) ScaleAmbition {
	switch {
	case containsAny(blob, "global", "worldwide"):
		return ScaleGlobal
	case containsAny(blob, "local", "community"):
		return ScaleLocal
	default:
		return ScaleRegional
	}
}

func archetypeFrom(risk RiskTolerance, innovation InnovationLevel, scale ScaleAmbition) Archetype {
	switch {
	case innovation == InnovationHigh:
		return ArchetypeInnovator
	case risk == RiskHigh:
		return ArchetypePioneer
	case scale == ScaleGlobal:
		return ArchetypeScaler
	default:
		return ArchetypeOptimizer
	}
}

func serialize(in extractor.Insight) string {
	data, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	return strings.ToLower(string(data))
}

func containsAny(blob string, words ...string) bool {
	return lo.SomeBy(words, func(w string) bool { return strings.Contains(blob, w) })
}

package extractor

import (
	"testing"
)

func TestParseInsight_Fenced(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"json fence", "```json\n{\"business_name\": \"Acme\"}\n```"},
		{"bare fence", "```\n{\"business_name\": \"Acme\"}\n```"},
		{"single line fence", "```json {\"business_name\": \"Acme\"} ```"},
		{"surrounding prose", "Here you go:\n{\"business_name\": \"Acme\"}\nThanks!"},
		{"plain", `{"business_name": "Acme"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ParseInsight(tt.raw)
			if Value(in.BusinessName) != "Acme" {
				t.Errorf("ParseInsight(%q).BusinessName = %q, want Acme", tt.raw, Value(in.BusinessName))
			}
		})
	}
}

func TestParseInsight_NonJSONYieldsEmpty(t *testing.T) {
	for _, raw := range []string{
		"no json here",
		"```json\nnot json\n```",
		"} backwards {",
		"{broken",
	} {
		if in := ParseInsight(raw); !in.IsEmpty() {
			t.Errorf("ParseInsight(%q) = %+v, want empty", raw, in)
		}
	}
}

func TestParseInsight_LooseTypes(t *testing.T) {
	raw := `{
		"businessName": "Acme",
		"revenue_model": 50000,
		"target_market": ["bakeries", "cafes"],
		"industry": "   ",
		"business_stage": {"value": "idea"},
		"primary_service": true
	}`

	in := ParseInsight(raw)

	if Value(in.BusinessName) != "Acme" {
		t.Errorf("expected camelCase alias to populate business name, got %q", Value(in.BusinessName))
	}
	if Value(in.RevenueModel) != "50000" {
		t.Errorf("expected numeric revenue stringified, got %q", Value(in.RevenueModel))
	}
	if Value(in.TargetMarket) != "bakeries, cafes" {
		t.Errorf("expected list joined, got %q", Value(in.TargetMarket))
	}
	if in.Industry != nil {
		t.Errorf("expected blank industry to be absent, got %q", *in.Industry)
	}
	if in.BusinessStage != nil {
		t.Errorf("expected nested object to be dropped, got %q", *in.BusinessStage)
	}
	if in.PrimaryService != nil {
		t.Errorf("expected boolean to be dropped, got %q", *in.PrimaryService)
	}
}

func TestParseInsight_CompetitiveAdvantageAlias(t *testing.T) {
	in := ParseInsight(`{"competitive_advantage": "same-day delivery"}`)
	if Value(in.CompetitiveEdge) != "same-day delivery" {
		t.Errorf("expected alias to populate competitive edge, got %q", Value(in.CompetitiveEdge))
	}
}

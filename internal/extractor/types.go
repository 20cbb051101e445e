package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Insight is the per-call business extraction from one transcript. Every field
// is optional; nil means the model did not supply it.
type Insight struct {
	BusinessName     *string `json:"business_name,omitempty"`
	ProblemStatement *string `json:"problem_statement,omitempty"`
	TargetMarket     *string `json:"target_market,omitempty"`
	CompetitiveEdge  *string `json:"competitive_edge,omitempty"`
	PrimaryService   *string `json:"primary_service,omitempty"`
	RevenueModel     *string `json:"revenue_model,omitempty"`
	BusinessModel    *string `json:"business_model,omitempty"`
	BusinessStage    *string `json:"business_stage,omitempty"`
	Industry         *string `json:"industry,omitempty"`
}

// fieldKeys lists accepted JSON keys per field, canonical key first.
var fieldKeys = []struct {
	keys []string
	get  func(*Insight) **string
}{
	{[]string{"business_name", "businessName"}, func(in *Insight) **string { return &in.BusinessName }},
	{[]string{"problem_statement", "problemStatement", "problem"}, func(in *Insight) **string { return &in.ProblemStatement }},
	{[]string{"target_market", "targetMarket"}, func(in *Insight) **string { return &in.TargetMarket }},
	{[]string{"competitive_edge", "competitiveEdge", "competitive_advantage", "competitiveAdvantage"}, func(in *Insight) **string { return &in.CompetitiveEdge }},
	{[]string{"primary_service", "primaryService"}, func(in *Insight) **string { return &in.PrimaryService }},
	{[]string{"revenue_model", "revenueModel"}, func(in *Insight) **string { return &in.RevenueModel }},
	{[]string{"business_model", "businessModel"}, func(in *Insight) **string { return &in.BusinessModel }},
	{[]string{"business_stage", "businessStage"}, func(in *Insight) **string { return &in.BusinessStage }},
	{[]string{"industry", "industry_category", "industryCategory"}, func(in *Insight) **string { return &in.Industry }},
}

// UnmarshalJSON accepts loosely typed model output: numbers and string lists are
// stringified, blanks and nested objects are dropped.
func (in *Insight) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Insight{}
	for _, f := range fieldKeys {
		for _, key := range f.keys {
			v, ok := raw[key]
			if !ok {
				continue
			}
			if s, ok := looseString(v); ok {
				*f.get(in) = &s
				break
			}
		}
	}
	return nil
}

func looseString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := looseString(item); ok {
				parts = append(parts, s)
			}
		}
		s := strings.Join(parts, ", ")
		return s, s != ""
	default:
		return "", false
	}
}

// IsEmpty reports whether no field is present.
func (in Insight) IsEmpty() bool {
	for _, f := range fieldKeys {
		if *f.get(&in) != nil {
			return false
		}
	}
	return true
}

// Present reports whether a field pointer carries a non-blank value.
func Present(p *string) bool {
	return p != nil && strings.TrimSpace(*p) != ""
}

// Value dereferences p, returning "" when absent.
func Value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Str returns a pointer to s, or nil when s is blank.
func Str(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Source is the provenance tag for an extraction produced by a given call stage.
func Source(callStage int) string {
	return fmt.Sprintf("call_%d", callStage)
}

// Package website renders a starter website for a founder from their Dream DNA.
package website

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
)

//go:embed templates/catalog.yaml templates/site.html.tmpl
var templateFS embed.FS

type Palette struct {
	Primary    string `yaml:"primary"`
	Accent     string `yaml:"accent"`
	Background string `yaml:"background"`
}

// Template is one catalog entry: copy and colours for a category.
type Template struct {
	Title    string  `yaml:"title"`
	Tagline  string  `yaml:"tagline"`
	Palette  Palette `yaml:"palette"`
	Sections struct {
		Problem  string `yaml:"problem"`
		Audience string `yaml:"audience"`
		Edge     string `yaml:"edge"`
		Offering string `yaml:"offering"`
	} `yaml:"sections"`
	CTA string `yaml:"cta"`
}

// Catalog holds every template category and the shared page layout.
type Catalog struct {
	templates map[classify.TemplateCategory]Template
	page      *template.Template
}

// LoadCatalog parses the embedded catalog. Every known category must be present.
func LoadCatalog() (*Catalog, error) {
	raw, err := templateFS.ReadFile("templates/catalog.yaml")
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var entries map[classify.TemplateCategory]Template
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, c := range []classify.TemplateCategory{
		classify.TemplateTechStartup, classify.TemplateConsulting,
		classify.TemplateEcommerce, classify.TemplateGeneralBusiness,
	} {
		if _, ok := entries[c]; !ok {
			return nil, fmt.Errorf("catalog missing category %q", c)
		}
	}

	page, err := template.ParseFS(templateFS, "templates/site.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &Catalog{templates: entries, page: page}, nil
}

// Lookup returns the template for a category, falling back to general-business.
func (c *Catalog) Lookup(category classify.TemplateCategory) (classify.TemplateCategory, Template) {
	if t, ok := c.templates[category]; ok {
		return category, t
	}
	return classify.TemplateGeneralBusiness, c.templates[classify.TemplateGeneralBusiness]
}

type section struct {
	Heading string
	Body    string
}

type page struct {
	Category     classify.TemplateCategory
	BusinessName string
	Tagline      string
	Palette      Palette
	CTA          string
	Sections     []section
	Year         int
}

// DefaultBusinessName titles a site when no business name is known.
const DefaultBusinessName = "Your Business"

// Render builds the page for an insight. Sections with no matching fact are
// left out.
func (c *Catalog) Render(category classify.TemplateCategory, in extractor.Insight, now time.Time) (string, error) {
	category, t := c.Lookup(category)

	p := page{
		Category:     category,
		BusinessName: extractor.Value(in.BusinessName),
		Tagline:      t.Tagline,
		Palette:      t.Palette,
		CTA:          t.CTA,
		Year:         now.Year(),
	}
	if p.BusinessName == "" {
		p.BusinessName = DefaultBusinessName
	}
	if extractor.Present(in.PrimaryService) {
		p.Tagline = extractor.Value(in.PrimaryService)
	}

	for _, s := range []struct {
		heading string
		value   *string
	}{
		{t.Sections.Problem, in.ProblemStatement},
		{t.Sections.Audience, in.TargetMarket},
		{t.Sections.Edge, in.CompetitiveEdge},
		{t.Sections.Offering, in.PrimaryService},
	} {
		if extractor.Present(s.value) {
			p.Sections = append(p.Sections, section{Heading: s.heading, Body: extractor.Value(s.value)})
		}
	}

	var buf bytes.Buffer
	if err := c.page.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render site: %w", err)
	}
	return buf.String(), nil
}

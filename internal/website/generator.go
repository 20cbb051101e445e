package website

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

const (
	NoteStored     = "Website generated and published"
	NoteNotUpload  = "Website generated; publishing pending"
	NoteNotStored  = "Website generated; history not saved"
	NoteNoDreamDNA = "Website generated from defaults; complete a Dream DNA call to personalise it"
)

type SnapshotLoader interface {
	Load(ctx context.Context, userID uuid.UUID) dreamdna.Snapshot
}

type Uploader interface {
	UploadSite(ctx context.Context, path, html string) (string, error)
}

type WebsiteStore interface {
	InsertGeneratedWebsite(ctx context.Context, w store.GeneratedWebsite) (uuid.UUID, error)
}

// Result is the website-generator response body.
type Result struct {
	Success          bool                      `json:"success"`
	WebsiteID        string                    `json:"website_id,omitempty"`
	TemplateCategory classify.TemplateCategory `json:"template_category"`
	BusinessName     string                    `json:"business_name"`
	Source           string                    `json:"dream_dna_source"`
	PublicURL        string                    `json:"public_url,omitempty"`
	HTML             string                    `json:"html"`
	Note             string                    `json:"note"`
	Warnings         []string                  `json:"warnings,omitempty"`
}

type Generator struct {
	catalog    *Catalog
	loader     SnapshotLoader
	classifier classify.Classifier
	uploader   Uploader
	sites      WebsiteStore
	events     hermes.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewGenerator accepts nil uploader, sites and events; the matching steps are
// skipped with a warning.
func NewGenerator(catalog *Catalog, loader SnapshotLoader, classifier classify.Classifier, uploader Uploader, sites WebsiteStore, events hermes.Publisher, logger *slog.Logger) *Generator {
	if classifier == nil {
		classifier = classify.WholeRecord{}
	}
	return &Generator{
		catalog:    catalog,
		loader:     loader,
		classifier: classifier,
		uploader:   uploader,
		sites:      sites,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Category picks the template for a snapshot: the stored classification when
// there is one, otherwise a fresh classification of the snapshot's facts.
// The stored Type follows the latest call and wins even when the merged Truth
// would classify differently.
func (g *Generator) Category(snap dreamdna.Snapshot) classify.TemplateCategory {
	if snap.Type != nil && snap.Type.TemplateCategory != "" {
		return classify.TemplateCategory(snap.Type.TemplateCategory)
	}
	return g.classifier.Classify(snap.Insight()).TemplateCategory
}

// Generate renders and publishes a site. Only rendering failures are errors;
// storage and history writes degrade to warnings.
func (g *Generator) Generate(ctx context.Context, userID uuid.UUID) (*Result, error) {
	snap := g.loader.Load(ctx, userID)
	in := snap.Insight()
	category, _ := g.catalog.Lookup(g.Category(snap))

	now := g.now()
	html, err := g.catalog.Render(category, in, now)
	if err != nil {
		return nil, fmt.Errorf("generate website: %w", err)
	}

	res := &Result{
		Success:          true,
		TemplateCategory: category,
		BusinessName:     extractor.Value(in.BusinessName),
		Source:           snap.Source,
		HTML:             html,
		Note:             NoteStored,
	}
	if res.BusinessName == "" {
		res.BusinessName = DefaultBusinessName
	}

	path := fmt.Sprintf("%s/%d.html", userID, now.Unix())
	if g.uploader == nil {
		res.Note = NoteNotUpload
		res.Warnings = append(res.Warnings, "storage not configured")
		path = ""
	} else if url, err := g.uploader.UploadSite(ctx, path, html); err != nil {
		g.logger.Warn("website upload failed", "user_id", userID, "error", err)
		res.Note = NoteNotUpload
		res.Warnings = append(res.Warnings, "website not published")
		path = ""
	} else {
		res.PublicURL = url
	}

	if g.sites != nil {
		id, err := g.sites.InsertGeneratedWebsite(ctx, store.GeneratedWebsite{
			UserID:           userID,
			TemplateCategory: string(category),
			BusinessName:     res.BusinessName,
			HTML:             html,
			StoragePath:      path,
			PublicURL:        res.PublicURL,
		})
		if err != nil {
			g.logger.Warn("generated website not recorded", "user_id", userID, "error", err)
			res.Warnings = append(res.Warnings, "website history not saved")
			if res.Note == NoteStored {
				res.Note = NoteNotStored
			}
		} else {
			res.WebsiteID = id.String()
		}
	}

	if snap.Source == dreamdna.SourceNone {
		res.Note = NoteNoDreamDNA
	}

	if g.events != nil {
		evt := hermes.WebsiteGenerated{
			UserID:           userID.String(),
			WebsiteID:        res.WebsiteID,
			TemplateCategory: string(category),
			PublicURL:        res.PublicURL,
			At:               now.UTC(),
		}
		if err := g.events.Publish(hermes.SubjectWebsiteGenerated, evt); err != nil {
			g.logger.Warn("website event not published", "user_id", userID, "error", err)
		}
	}

	g.logger.Info("website generated",
		"user_id", userID,
		"template", category,
		"source", snap.Source,
		"published", res.PublicURL != "",
	)
	return res, nil
}

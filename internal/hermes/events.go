package hermes

import "time"

const (
	// SubjectCallEnded carries voice-platform end-of-call reports.
	SubjectCallEnded = "dreamseed.voice.call.ended"

	SubjectDreamDNAUpdated  = "dreamseed.dreamdna.updated"
	SubjectDomainSaved      = "dreamseed.domain.saved"
	SubjectWebsiteGenerated = "dreamseed.website.generated"

	// QueueProcessors is the queue group shared by transcript processors.
	QueueProcessors = "dreamseed-processors"
)

// Publisher is the subset of Client that emitters depend on.
type Publisher interface {
	Publish(subject string, data any) error
}

// CallEnded is published by the voice integration when an interview call
// finishes. UserID is the DreamSeed profile id the call was placed for.
type CallEnded struct {
	CallID     string `json:"call_id"`
	UserID     string `json:"user_id"`
	CallStage  int    `json:"call_stage"`
	Transcript string `json:"transcript"`
}

type DreamDNAUpdated struct {
	UserID           string    `json:"user_id"`
	CallID           string    `json:"call_id,omitempty"`
	Created          bool      `json:"created"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ExtractionSource string    `json:"extraction_source"`
	Archetype        string    `json:"archetype"`
	TemplateCategory string    `json:"template_category"`
	At               time.Time `json:"at"`
}

type DomainSaved struct {
	UserID  string    `json:"user_id"`
	Domain  string    `json:"domain"`
	SavedTo string    `json:"saved_to"`
	At      time.Time `json:"at"`
}

type WebsiteGenerated struct {
	UserID           string    `json:"user_id"`
	WebsiteID        string    `json:"website_id,omitempty"`
	TemplateCategory string    `json:"template_category"`
	PublicURL        string    `json:"public_url,omitempty"`
	At               time.Time `json:"at"`
}

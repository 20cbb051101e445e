package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MikeSquared-Agency/dreamseed/internal/callguard"
	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

// ErrInvalidInput marks request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// MaxCallStage is the number of scripted interview calls.
const MaxCallStage = 4

const handlerTimeout = 2 * time.Minute

var tracer = otel.Tracer("github.com/MikeSquared-Agency/dreamseed/internal/processor")

type Extractor interface {
	Extract(ctx context.Context, transcript string, callStage int) (extractor.Insight, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, userID uuid.UUID, in extractor.Insight, callStage int) (*dreamdna.Outcome, error)
}

type ProbabilityRecorder interface {
	Record(ctx context.Context, userID uuid.UUID, in extractor.Insight) dreamdna.ProbabilityAnalysis
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbeddingModel() string
}

type TranscriptStore interface {
	InsertTranscript(ctx context.Context, t store.Transcript) (uuid.UUID, error)
}

// Deps are the collaborators of a Processor. Embedder, Transcripts, Events and
// Guard are optional.
type Deps struct {
	Extractor   Extractor
	Reconciler  Reconciler
	Probability ProbabilityRecorder
	Embedder    Embedder
	Transcripts TranscriptStore
	Events      hermes.Publisher
	Guard       callguard.Guard
}

// Processor runs the transcript pipeline: extract, classify, reconcile,
// record alternatives, store the transcript and announce the update.
type Processor struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Processor {
	return &Processor{deps: deps, logger: logger}
}

type Request struct {
	UserID         string `json:"userId"`
	TranscriptText string `json:"transcriptText"`
	CallStage      int    `json:"callStage"`
	CallID         string `json:"callId"`
}

type Embeddings struct {
	Dimensions int    `json:"dimensions"`
	Model      string `json:"model"`
}

// Result is the transcript-processor response body.
type Result struct {
	Success                bool                         `json:"success"`
	BusinessInsights       extractor.Insight            `json:"businessInsights"`
	DreamDNAUpdated        bool                         `json:"dreamDNAUpdated"`
	DreamDNACreated        bool                         `json:"dreamDNACreated"`
	ConfidenceScore        float64                      `json:"confidenceScore"`
	ProbabilityAnalysis    dreamdna.ProbabilityAnalysis `json:"probabilityAnalysis"`
	BusinessClassification classify.Classification      `json:"businessClassification"`
	Embeddings             Embeddings                   `json:"embeddings"`
	Warnings               []string                     `json:"warnings,omitempty"`
}

func (r Request) validate() (uuid.UUID, error) {
	if strings.TrimSpace(r.UserID) == "" {
		return uuid.Nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	userID, err := uuid.Parse(strings.TrimSpace(r.UserID))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: userId must be a uuid", ErrInvalidInput)
	}
	if strings.TrimSpace(r.TranscriptText) == "" {
		return uuid.Nil, fmt.Errorf("%w: transcriptText is required", ErrInvalidInput)
	}
	if r.CallStage < 1 || r.CallStage > MaxCallStage {
		return uuid.Nil, fmt.Errorf("%w: callStage must be between 1 and %d", ErrInvalidInput, MaxCallStage)
	}
	return userID, nil
}

// Process runs the pipeline for one transcript. Only validation, extraction
// and the Truth write can fail it; every later step degrades into Warnings.
func (p *Processor) Process(ctx context.Context, req Request) (res *Result, err error) {
	ctx, span := tracer.Start(ctx, "processor.Process")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	userID, err := req.validate()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("call_id", req.CallID),
		attribute.Int("call_stage", req.CallStage),
	)
	log := p.logger.With("user_id", userID, "call_id", req.CallID, "call_stage", req.CallStage)

	insight, err := p.deps.Extractor.Extract(ctx, req.TranscriptText, req.CallStage)
	if err != nil {
		return nil, fmt.Errorf("extract insight: %w", err)
	}

	outcome, err := p.deps.Reconciler.Reconcile(ctx, userID, insight, req.CallStage)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Success:                true,
		BusinessInsights:       insight,
		DreamDNAUpdated:        true,
		DreamDNACreated:        outcome.Created,
		ConfidenceScore:        outcome.Truth.ConfidenceScore,
		BusinessClassification: outcome.Classification,
	}
	if outcome.TypeError != "" {
		res.Warnings = append(res.Warnings, "classification not saved")
	}

	res.ProbabilityAnalysis = p.deps.Probability.Record(ctx, userID, insight)
	if res.ProbabilityAnalysis.Error != "" {
		res.Warnings = append(res.Warnings, "probability analysis not saved")
	}

	embedding := p.embed(ctx, log, req.TranscriptText, res)
	p.storeTranscript(ctx, log, userID, req, embedding, res)
	p.publishUpdated(log, userID, req.CallID, outcome)

	log.Info("transcript processed",
		"created", outcome.Created,
		"confidence", outcome.Truth.ConfidenceScore,
		"archetype", outcome.Classification.BusinessArchetype,
		"warnings", len(res.Warnings),
	)
	return res, nil
}

func (p *Processor) embed(ctx context.Context, log *slog.Logger, text string, res *Result) []float32 {
	if p.deps.Embedder == nil {
		return nil
	}
	res.Embeddings.Model = p.deps.Embedder.EmbeddingModel()
	vec, err := p.deps.Embedder.Embed(ctx, text)
	if err != nil {
		log.Warn("transcript embedding failed", "error", err)
		res.Warnings = append(res.Warnings, "embedding unavailable")
		return nil
	}
	res.Embeddings.Dimensions = len(vec)
	return vec
}

func (p *Processor) storeTranscript(ctx context.Context, log *slog.Logger, userID uuid.UUID, req Request, embedding []float32, res *Result) {
	if p.deps.Transcripts == nil {
		return
	}
	_, err := p.deps.Transcripts.InsertTranscript(ctx, store.Transcript{
		UserID:    userID,
		CallID:    req.CallID,
		CallStage: req.CallStage,
		Text:      req.TranscriptText,
		Embedding: embedding,
	})
	if err != nil {
		log.Warn("transcript insert failed", "error", err)
		res.Warnings = append(res.Warnings, "transcript not saved")
	}
}

func (p *Processor) publishUpdated(log *slog.Logger, userID uuid.UUID, callID string, outcome *dreamdna.Outcome) {
	if p.deps.Events == nil {
		return
	}
	err := p.deps.Events.Publish(hermes.SubjectDreamDNAUpdated, hermes.DreamDNAUpdated{
		UserID:           userID.String(),
		CallID:           callID,
		Created:          outcome.Created,
		ConfidenceScore:  outcome.Truth.ConfidenceScore,
		ExtractionSource: outcome.Truth.ExtractionSource,
		Archetype:        string(outcome.Classification.BusinessArchetype),
		TemplateCategory: string(outcome.Classification.TemplateCategory),
		At:               time.Now().UTC(),
	})
	if err != nil {
		log.Error("failed to publish dream dna updated", "error", err)
	}
}

// HandleCallEnded is the NATS handler for dreamseed.voice.call.ended. Each
// call id is processed at most once; a failed run releases its claim.
func (p *Processor) HandleCallEnded(subject string, data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var evt hermes.CallEnded
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse call ended event", "subject", subject, "error", err)
		return
	}

	if evt.CallID != "" && p.deps.Guard != nil {
		claimed, err := p.deps.Guard.Claim(ctx, evt.CallID)
		if err != nil {
			p.logger.Error("call claim failed", "call_id", evt.CallID, "error", err)
			return
		}
		if !claimed {
			p.logger.Info("skipping already processed call", "call_id", evt.CallID)
			return
		}
	}

	_, err := p.Process(ctx, Request{
		UserID:         evt.UserID,
		TranscriptText: evt.Transcript,
		CallStage:      evt.CallStage,
		CallID:         evt.CallID,
	})
	if err == nil {
		return
	}

	p.logger.Error("call processing failed", "call_id", evt.CallID, "user_id", evt.UserID, "error", err)
	if evt.CallID != "" && p.deps.Guard != nil && !errors.Is(err, ErrInvalidInput) {
		if err := p.deps.Guard.Release(ctx, evt.CallID); err != nil {
			p.logger.Warn("call release failed", "call_id", evt.CallID, "error", err)
		}
	}
}

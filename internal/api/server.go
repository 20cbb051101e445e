package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/personalize"
	"github.com/MikeSquared-Agency/dreamseed/internal/processor"
	"github.com/MikeSquared-Agency/dreamseed/internal/website"
)

type TranscriptProcessor interface {
	Process(ctx context.Context, req processor.Request) (*processor.Result, error)
}

type UserStore interface {
	ResolveUserID(ctx context.Context, userID, authUserID string) (uuid.UUID, error)
	SaveDomainSelection(ctx context.Context, userID uuid.UUID, domain string, price float64, currency string) error
}

type DreamDNAWriter interface {
	Write(ctx context.Context, rec dreamdna.Record) (dreamdna.Written, error)
	Tiers() []string
}

type WebsiteGenerator interface {
	Generate(ctx context.Context, userID uuid.UUID) (*website.Result, error)
}

type Personalizer interface {
	Preview(ctx context.Context, userID uuid.UUID) (*personalize.Preview, error)
	Push(ctx context.Context, userID uuid.UUID) (*personalize.Pushed, error)
}

// Deps are the collaborators behind the routes. A nil dependency turns its
// routes into 503s.
type Deps struct {
	Processor   TranscriptProcessor
	Users       UserStore
	DreamDNA    DreamDNAWriter
	Websites    WebsiteGenerator
	Personalize Personalizer
	Events      hermes.Publisher
}

type Server struct {
	router *chi.Mux
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, apiToken, jwtSecret string, deps Deps, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		deps:   deps,
		logger: logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/dreamseed/status", s.status)

	router.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken, jwtSecret))
		r.Post("/api/transcript-processor", s.processTranscript)
		r.Post("/api/save-domain", s.saveDomain)
		r.Post("/api/website-generator", s.generateWebsite)
		r.Get("/api/vapi-personalize", s.previewPersonalization)
		r.Post("/api/vapi-personalize", s.pushPersonalization)
	})

	return s
}

// Start blocks until the server stops. http.ErrServerClosed follows Shutdown.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var tiers []string
	if s.deps.DreamDNA != nil {
		tiers = s.deps.DreamDNA.Tiers()
	}
	features := map[string]bool{
		"transcripts": s.deps.Processor != nil,
		"domains":     s.deps.Users != nil && s.deps.DreamDNA != nil,
		"websites":    s.deps.Websites != nil,
		"personalize": s.deps.Personalize != nil,
		"events":      s.deps.Events != nil,
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service":        "dreamseed",
		"status":         "ok",
		"dreamdna_tiers": tiers,
		"features":       features,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}

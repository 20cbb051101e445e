package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/idna"

	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/personalize"
	"github.com/MikeSquared-Agency/dreamseed/internal/processor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

const maxBodyBytes = 1 << 20

// userRef names a user by profile id or Supabase auth id.
type userRef struct {
	UserID     string `json:"user_id"`
	AuthUserID string `json:"auth_user_id"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// resolveUser maps a request's user reference to a profile id. A caller
// holding a Supabase token defaults to, and may only name, their own profile.
// Service-token callers may name any user.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request, ref userRef) (uuid.UUID, bool) {
	named := strings.TrimSpace(ref.UserID) != "" || strings.TrimSpace(ref.AuthUserID) != ""
	caller := AuthUserID(r.Context())
	if caller != "" {
		own, ok := s.callerProfile(w, r, caller)
		if !ok || !named {
			return own, ok
		}
		id, err := s.deps.Users.ResolveUserID(r.Context(), ref.UserID, ref.AuthUserID)
		if err != nil || id != own {
			s.logger.Warn("user reference outside token scope", "auth_user_id", caller, "user_id", ref.UserID)
			writeError(w, http.StatusForbidden, "token does not grant access to this user")
			return uuid.Nil, false
		}
		return own, true
	}

	if !named {
		writeError(w, http.StatusBadRequest, "user_id or auth_user_id is required")
		return uuid.Nil, false
	}
	id, err := s.deps.Users.ResolveUserID(r.Context(), ref.UserID, ref.AuthUserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return uuid.Nil, false
	case err != nil:
		s.logger.Error("resolve user failed", "error", err)
		writeError(w, http.StatusBadRequest, "invalid user reference")
		return uuid.Nil, false
	}
	return id, true
}

// callerProfile resolves the profile behind a Supabase token subject.
func (s *Server) callerProfile(w http.ResponseWriter, r *http.Request, authUserID string) (uuid.UUID, bool) {
	id, err := s.deps.Users.ResolveUserID(r.Context(), "", authUserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found")
		return uuid.Nil, false
	case err != nil:
		s.logger.Error("resolve caller failed", "auth_user_id", authUserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve caller")
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) unavailable(w http.ResponseWriter, feature string) {
	writeError(w, http.StatusServiceUnavailable, feature+" not configured")
}

// POST /api/transcript-processor
func (s *Server) processTranscript(w http.ResponseWriter, r *http.Request) {
	if s.deps.Processor == nil {
		s.unavailable(w, "transcript processing")
		return
	}
	var req processor.Request
	if !decode(w, r, &req) {
		return
	}
	if AuthUserID(r.Context()) != "" {
		if s.deps.Users == nil {
			s.unavailable(w, "user lookup")
			return
		}
		id, ok := s.resolveUser(w, r, userRef{UserID: req.UserID})
		if !ok {
			return
		}
		req.UserID = id.String()
	}

	res, err := s.deps.Processor.Process(r.Context(), req)
	switch {
	case errors.Is(err, processor.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

type saveDomainRequest struct {
	userRef
	Domain   string  `json:"domain"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}

type saveDomainResponse struct {
	Success bool   `json:"success"`
	Domain  string `json:"domain"`
	SavedTo string `json:"saved_to"`
	Note    string `json:"note,omitempty"`
}

var domainLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// normalizeDomain lowercases a host name like "acme.com" or "café.co.uk" into
// its ASCII form and reports whether every label is a valid LDH label.
func normalizeDomain(d string) (string, bool) {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSpace(d))
	if err != nil {
		return "", false
	}
	ascii = strings.ToLower(ascii)
	if len(ascii) < 3 || len(ascii) > 253 {
		return "", false
	}
	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", false
	}
	for _, l := range labels {
		if len(l) > 63 || !domainLabel.MatchString(l) {
			return "", false
		}
	}
	return ascii, true
}

// POST /api/save-domain. The profile write is strict; the Dream DNA write
// after it is best effort and never fails the request.
func (s *Server) saveDomain(w http.ResponseWriter, r *http.Request) {
	if s.deps.Users == nil || s.deps.DreamDNA == nil {
		s.unavailable(w, "domain saving")
		return
	}
	var req saveDomainRequest
	if !decode(w, r, &req) {
		return
	}
	domain, ok := normalizeDomain(req.Domain)
	if !ok {
		writeError(w, http.StatusBadRequest, "a valid domain is required")
		return
	}
	if req.Price < 0 {
		writeError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}

	userID, ok := s.resolveUser(w, r, req.userRef)
	if !ok {
		return
	}

	if err := s.deps.Users.SaveDomainSelection(r.Context(), userID, domain, req.Price, currency); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		s.logger.Error("save domain selection failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save domain")
		return
	}

	written, err := s.deps.DreamDNA.Write(r.Context(), dreamdna.DomainRecord(userID, domain, req.Price))
	if err != nil {
		s.logger.Warn("domain saved without dream dna", "user_id", userID, "error", err)
	}

	if s.deps.Events != nil {
		evt := hermes.DomainSaved{UserID: userID.String(), Domain: domain, SavedTo: written.Tier, At: time.Now().UTC()}
		if err := s.deps.Events.Publish(hermes.SubjectDomainSaved, evt); err != nil {
			s.logger.Warn("domain event not published", "user_id", userID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, saveDomainResponse{
		Success: true,
		Domain:  domain,
		SavedTo: written.Tier,
		Note:    written.Note,
	})
}

// POST /api/website-generator
func (s *Server) generateWebsite(w http.ResponseWriter, r *http.Request) {
	if s.deps.Websites == nil || s.deps.Users == nil {
		s.unavailable(w, "website generation")
		return
	}
	var ref userRef
	if !decode(w, r, &ref) {
		return
	}
	userID, ok := s.resolveUser(w, r, ref)
	if !ok {
		return
	}
	res, err := s.deps.Websites.Generate(r.Context(), userID)
	if err != nil {
		s.logger.Error("website generation failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate website")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /api/vapi-personalize?user_id=...
func (s *Server) previewPersonalization(w http.ResponseWriter, r *http.Request) {
	if s.deps.Personalize == nil || s.deps.Users == nil {
		s.unavailable(w, "personalization")
		return
	}
	q := r.URL.Query()
	userID, ok := s.resolveUser(w, r, userRef{UserID: q.Get("user_id"), AuthUserID: q.Get("auth_user_id")})
	if !ok {
		return
	}
	p, err := s.deps.Personalize.Preview(r.Context(), userID)
	if err != nil {
		s.logger.Error("personalization preview failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build prompt")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "preview": p})
}

// POST /api/vapi-personalize
func (s *Server) pushPersonalization(w http.ResponseWriter, r *http.Request) {
	if s.deps.Personalize == nil || s.deps.Users == nil {
		s.unavailable(w, "personalization")
		return
	}
	var ref userRef
	if !decode(w, r, &ref) {
		return
	}
	userID, ok := s.resolveUser(w, r, ref)
	if !ok {
		return
	}
	pushed, err := s.deps.Personalize.Push(r.Context(), userID)
	switch {
	case errors.Is(err, personalize.ErrAssistantNotConfigured):
		s.unavailable(w, "voice assistant")
	case err != nil:
		s.logger.Error("personalization push failed", "user_id", userID, "error", err)
		writeError(w, http.StatusBadGateway, "failed to update voice assistant")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "assistant": pushed})
	}
}

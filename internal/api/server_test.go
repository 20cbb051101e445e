package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/hermes"
	"github.com/MikeSquared-Agency/dreamseed/internal/personalize"
	"github.com/MikeSquared-Agency/dreamseed/internal/processor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
	"github.com/MikeSquared-Agency/dreamseed/internal/website"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

type fakeProcessor struct {
	got processor.Request
	err error
}

func (f *fakeProcessor) Process(_ context.Context, req processor.Request) (*processor.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Result{Success: true, ConfidenceScore: 0.7}, nil
}

type fakeUsers struct {
	byID     map[string]uuid.UUID
	byAuth   map[string]uuid.UUID
	saveErr  error
	saved    []string
	resolved []string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]uuid.UUID{}, byAuth: map[string]uuid.UUID{}}
}

func (f *fakeUsers) add(authID string) uuid.UUID {
	id := uuid.New()
	f.byID[id.String()] = id
	if authID != "" {
		f.byAuth[authID] = id
	}
	return id
}

func (f *fakeUsers) ResolveUserID(_ context.Context, userID, authUserID string) (uuid.UUID, error) {
	f.resolved = append(f.resolved, userID+"|"+authUserID)
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			return uuid.Nil, fmt.Errorf("parse id: %w", err)
		}
		if id, ok := f.byID[userID]; ok {
			return id, nil
		}
		return uuid.Nil, store.ErrNotFound
	}
	if id, ok := f.byAuth[authUserID]; ok {
		return id, nil
	}
	return uuid.Nil, store.ErrNotFound
}

func (f *fakeUsers) SaveDomainSelection(_ context.Context, userID uuid.UUID, domain string, price float64, currency string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, fmt.Sprintf("%s %s %.2f %s", userID, domain, price, currency))
	return nil
}

type fakeChain struct {
	got     []dreamdna.Record
	written dreamdna.Written
	err     error
}

func (f *fakeChain) Write(_ context.Context, rec dreamdna.Record) (dreamdna.Written, error) {
	f.got = append(f.got, rec)
	return f.written, f.err
}

func (f *fakeChain) Tiers() []string { return []string{"dream_dna_truth", "users.business_name"} }

type fakeWebsites struct {
	err error
}

func (f *fakeWebsites) Generate(_ context.Context, userID uuid.UUID) (*website.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &website.Result{Success: true, BusinessName: "Acme", TemplateCategory: "consulting"}, nil
}

type fakePersonalizer struct {
	pushErr error
}

func (f *fakePersonalizer) Preview(_ context.Context, userID uuid.UUID) (*personalize.Preview, error) {
	return &personalize.Preview{UserID: userID.String(), Prompt: "hello"}, nil
}

func (f *fakePersonalizer) Push(ctx context.Context, userID uuid.UUID) (*personalize.Pushed, error) {
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	p, _ := f.Preview(ctx, userID)
	return &personalize.Pushed{Preview: *p, AssistantID: "asst-1"}, nil
}

type fakeEvents struct{ subjects []string }

func (f *fakeEvents) Publish(subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

// --- helpers ---

func do(t *testing.T, srv *Server, method, path, body string, header ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func openServer(deps Deps) *Server {
	return NewServer(8790, "", "", deps, discardLogger())
}

// --- base routes ---

func TestHealthEndpoint(t *testing.T) {
	srv := openServer(Deps{})

	w, body := do(t, srv, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := openServer(Deps{DreamDNA: &fakeChain{}, Users: newFakeUsers()})

	w, body := do(t, srv, "GET", "/api/v1/dreamseed/status", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body["service"] != "dreamseed" {
		t.Errorf("expected service dreamseed, got %v", body["service"])
	}
	features := body["features"].(map[string]any)
	assert.Equal(t, true, features["domains"])
	assert.Equal(t, false, features["websites"])
	assert.Len(t, body["dreamdna_tiers"], 2)
}

func TestNotFoundEndpoint(t *testing.T) {
	w, _ := do(t, openServer(Deps{}), "GET", "/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUnconfiguredRoutesReturn503(t *testing.T) {
	srv := openServer(Deps{})
	for _, tc := range []struct{ method, path string }{
		{"POST", "/api/transcript-processor"},
		{"POST", "/api/save-domain"},
		{"POST", "/api/website-generator"},
		{"GET", "/api/vapi-personalize"},
		{"POST", "/api/vapi-personalize"},
	} {
		w, body := do(t, srv, tc.method, tc.path, "{}")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, tc.path)
		assert.Equal(t, false, body["success"], tc.path)
	}
}

// --- auth ---

func signed(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestBearerAuth(t *testing.T) {
	var seen string
	h := BearerAuthMiddleware("svc-token", "jwt-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AuthUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantUser string
	}{
		{"missing", "", http.StatusUnauthorized, ""},
		{"service token", "Bearer svc-token", http.StatusNoContent, ""},
		{"wrong token", "Bearer nope", http.StatusUnauthorized, ""},
		{"supabase jwt", "Bearer " + signed(t, "jwt-secret", "auth-123", time.Now().Add(time.Hour)), http.StatusNoContent, "auth-123"},
		{"expired jwt", "Bearer " + signed(t, "jwt-secret", "auth-123", time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
		{"wrong secret", "Bearer " + signed(t, "other", "auth-123", time.Now().Add(time.Hour)), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

func TestBearerAuth_OpenWhenUnconfigured(t *testing.T) {
	h := BearerAuthMiddleware("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealthBypassesAuth(t *testing.T) {
	srv := NewServer(8790, "svc-token", "", Deps{}, discardLogger())
	w, _ := do(t, srv, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, srv, "POST", "/api/save-domain", "{}")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// --- transcript processor ---

func TestProcessTranscript(t *testing.T) {
	p := &fakeProcessor{}
	srv := openServer(Deps{Processor: p})

	w, body := do(t, srv, "POST", "/api/transcript-processor",
		`{"userId":"`+uuid.NewString()+`","transcriptText":"hi","callStage":1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1, p.got.CallStage)
}

func TestProcessTranscript_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"bad json", nil, `{`, http.StatusBadRequest},
		{"invalid input", fmt.Errorf("%w: callStage must be between 1 and 4", processor.ErrInvalidInput), `{}`, http.StatusBadRequest},
		{"pipeline failure", errors.New("store truth: connection refused"), `{}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := openServer(Deps{Processor: &fakeProcessor{err: tt.err}})
			w, body := do(t, srv, "POST", "/api/transcript-processor", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestProcessTranscript_DefaultsUserFromToken(t *testing.T) {
	users := newFakeUsers()
	id := users.add("auth-123")
	p := &fakeProcessor{}
	srv := NewServer(8790, "", "jwt-secret", Deps{Processor: p, Users: users}, discardLogger())

	tok := signed(t, "jwt-secret", "auth-123", time.Now().Add(time.Hour))
	w, _ := do(t, srv, "POST", "/api/transcript-processor", `{"transcriptText":"hi","callStage":2}`, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id.String(), p.got.UserID)
}

// --- save domain ---

func TestSaveDomain(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	chain := &fakeChain{written: dreamdna.Written{Tier: "dream_dna_truth"}}
	events := &fakeEvents{}
	srv := openServer(Deps{Users: users, DreamDNA: chain, Events: events})

	w, body := do(t, srv, "POST", "/api/save-domain",
		`{"user_id":"`+id.String()+`","domain":" Acme-Bakery.com ","price":12.99}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "acme-bakery.com", body["domain"])
	assert.Equal(t, "dream_dna_truth", body["saved_to"])

	require.Len(t, users.saved, 1)
	assert.Equal(t, id.String()+" acme-bakery.com 12.99 USD", users.saved[0])
	require.Len(t, chain.got, 1)
	assert.Equal(t, "Acme Bakery", *chain.got[0].Insight.BusinessName)
	assert.Equal(t, "budget", chain.got[0].PriceLevel)
	assert.Equal(t, []string{hermes.SubjectDomainSaved}, events.subjects)
}

func TestSaveDomain_AllTiersFailStillSucceeds(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	chain := &fakeChain{
		written: dreamdna.Written{Tier: dreamdna.TierNone, Note: dreamdna.PendingNote},
		err:     dreamdna.ErrAllTiersFailed,
	}
	srv := openServer(Deps{Users: users, DreamDNA: chain})

	w, body := do(t, srv, "POST", "/api/save-domain", `{"user_id":"`+id.String()+`","domain":"acme.io"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, dreamdna.TierNone, body["saved_to"])
	assert.Equal(t, dreamdna.PendingNote, body["note"])
}

func TestSaveDomain_ResolvesAuthUser(t *testing.T) {
	users := newFakeUsers()
	id := users.add("auth-9")
	srv := openServer(Deps{Users: users, DreamDNA: &fakeChain{}})

	w, _ := do(t, srv, "POST", "/api/save-domain", `{"auth_user_id":"auth-9","domain":"acme.io","currency":"eur"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, users.saved, 1)
	assert.True(t, strings.HasPrefix(users.saved[0], id.String()))
	assert.True(t, strings.HasSuffix(users.saved[0], "EUR"))
}

func TestSaveDomain_Errors(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")

	tests := []struct {
		name    string
		body    string
		saveErr error
		want    int
	}{
		{"no domain", `{"user_id":"` + id.String() + `"}`, nil, http.StatusBadRequest},
		{"bad domain", `{"user_id":"` + id.String() + `","domain":"not a domain"}`, nil, http.StatusBadRequest},
		{"single label", `{"user_id":"` + id.String() + `","domain":"localhost"}`, nil, http.StatusBadRequest},
		{"negative price", `{"user_id":"` + id.String() + `","domain":"acme.io","price":-1}`, nil, http.StatusBadRequest},
		{"no user", `{"domain":"acme.io"}`, nil, http.StatusBadRequest},
		{"bad user id", `{"user_id":"xyz","domain":"acme.io"}`, nil, http.StatusBadRequest},
		{"unknown user", `{"user_id":"` + uuid.NewString() + `","domain":"acme.io"}`, nil, http.StatusNotFound},
		{"profile write fails", `{"user_id":"` + id.String() + `","domain":"acme.io"}`, errors.New("db down"), http.StatusInternalServerError},
		{"profile vanished", `{"user_id":"` + id.String() + `","domain":"acme.io"}`, store.ErrNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users.saveErr = tt.saveErr
			chain := &fakeChain{}
			srv := openServer(Deps{Users: users, DreamDNA: chain})
			w, body := do(t, srv, "POST", "/api/save-domain", tt.body)
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, false, body["success"])
			assert.Empty(t, chain.got, "dream dna must not be written when the profile write is rejected")
		})
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
		ok     bool
	}{
		{"acme.com", "acme.com", true},
		{" Acme-Bakery.COM ", "acme-bakery.com", true},
		{"my-shop.co.uk", "my-shop.co.uk", true},
		{"café.com", "xn--caf-dma.com", true},
		{"acme", "", false},
		{"-acme.com", "", false},
		{"acme-.com", "", false},
		{"acme..com", "", false},
		{"https://acme.com", "", false},
		{"a@b.com", "", false},
		{"ac$me.com", "", false},
		{"acme!!.com", "", false},
		{"a_b.c", "", false},
		{"acme.c0m?x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			got, ok := normalizeDomain(tt.domain)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveDomain_StoresASCIIForm(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	chain := &fakeChain{}
	srv := openServer(Deps{Users: users, DreamDNA: chain})

	w, body := do(t, srv, "POST", "/api/save-domain", `{"user_id":"`+id.String()+`","domain":"café.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "xn--caf-dma.com", body["domain"])
	require.Len(t, chain.got, 1)
	assert.Equal(t, "Café", *chain.got[0].Insight.BusinessName)
}

// --- token scope ---

func TestTokenCallerLimitedToOwnProfile(t *testing.T) {
	users := newFakeUsers()
	alice := users.add("auth-alice")
	bob := users.add("auth-bob")
	tok := "Bearer " + signed(t, "jwt-secret", "auth-alice", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		header string
		want   int
	}{
		{"transcript for another user", "POST", "/api/transcript-processor", `{"userId":"` + bob.String() + `","transcriptText":"hi","callStage":2}`, tok, http.StatusForbidden},
		{"transcript for self", "POST", "/api/transcript-processor", `{"userId":"` + alice.String() + `","transcriptText":"hi","callStage":2}`, tok, http.StatusOK},
		{"transcript with junk user id", "POST", "/api/transcript-processor", `{"userId":"xyz","transcriptText":"hi","callStage":2}`, tok, http.StatusForbidden},
		{"domain by profile id", "POST", "/api/save-domain", `{"user_id":"` + bob.String() + `","domain":"acme.io"}`, tok, http.StatusForbidden},
		{"domain by auth id", "POST", "/api/save-domain", `{"auth_user_id":"auth-bob","domain":"acme.io"}`, tok, http.StatusForbidden},
		{"domain by unknown user", "POST", "/api/save-domain", `{"user_id":"` + uuid.NewString() + `","domain":"acme.io"}`, tok, http.StatusForbidden},
		{"domain for self", "POST", "/api/save-domain", `{"domain":"acme.io"}`, tok, http.StatusOK},
		{"website for another user", "POST", "/api/website-generator", `{"user_id":"` + bob.String() + `"}`, tok, http.StatusForbidden},
		{"preview for another user", "GET", "/api/vapi-personalize?user_id=" + bob.String(), "", tok, http.StatusForbidden},
		{"push for another user", "POST", "/api/vapi-personalize", `{"auth_user_id":"auth-bob"}`, tok, http.StatusForbidden},
		{"service token names anyone", "POST", "/api/transcript-processor", `{"userId":"` + bob.String() + `","transcriptText":"hi","callStage":2}`, "Bearer svc-token", http.StatusOK},
		{"token without profile", "POST", "/api/save-domain", `{"domain":"acme.io"}`, "Bearer " + signed(t, "jwt-secret", "auth-ghost", time.Now().Add(time.Hour)), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			chain := &fakeChain{}
			users.saved = nil
			srv := NewServer(8790, "svc-token", "jwt-secret", Deps{
				Processor:   p,
				Users:       users,
				DreamDNA:    chain,
				Websites:    &fakeWebsites{},
				Personalize: &fakePersonalizer{},
			}, discardLogger())

			w, _ := do(t, srv, tt.method, tt.path, tt.body, "Authorization", tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusOK {
				assert.Empty(t, p.got.UserID, "processor must not run")
				assert.Empty(t, users.saved, "profile must not be written")
				assert.Empty(t, chain.got, "dream dna must not be written")
			}
		})
	}
}

func TestProcessTranscript_TokenNeedsUserLookup(t *testing.T) {
	p := &fakeProcessor{}
	srv := NewServer(8790, "", "jwt-secret", Deps{Processor: p}, discardLogger())
	tok := signed(t, "jwt-secret", "auth-123", time.Now().Add(time.Hour))

	w, _ := do(t, srv, "POST", "/api/transcript-processor", `{"transcriptText":"hi","callStage":2}`, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Empty(t, p.got.UserID)
}

// --- website + personalize ---

func TestGenerateWebsite(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	srv := openServer(Deps{Users: users, Websites: &fakeWebsites{}})

	w, body := do(t, srv, "POST", "/api/website-generator", `{"user_id":"`+id.String()+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "consulting", body["template_category"])

	srv = openServer(Deps{Users: users, Websites: &fakeWebsites{err: errors.New("template broke")}})
	w, _ = do(t, srv, "POST", "/api/website-generator", `{"user_id":"`+id.String()+`"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPersonalize(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	srv := openServer(Deps{Users: users, Personalize: &fakePersonalizer{}})

	w, body := do(t, srv, "GET", "/api/vapi-personalize?user_id="+id.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello", body["preview"].(map[string]any)["prompt"])

	w, body = do(t, srv, "POST", "/api/vapi-personalize", `{"user_id":"`+id.String()+`"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "asst-1", body["assistant"].(map[string]any)["assistant_id"])
}

func TestPersonalize_PushErrors(t *testing.T) {
	users := newFakeUsers()
	id := users.add("")
	body := `{"user_id":"` + id.String() + `"}`

	srv := openServer(Deps{Users: users, Personalize: &fakePersonalizer{pushErr: personalize.ErrAssistantNotConfigured}})
	w, _ := do(t, srv, "POST", "/api/vapi-personalize", body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	srv = openServer(Deps{Users: users, Personalize: &fakePersonalizer{pushErr: errors.New("vapi status 500")}})
	w, _ = do(t, srv, "POST", "/api/vapi-personalize", body)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

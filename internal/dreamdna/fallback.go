package dreamdna

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/idna"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
)

// ErrAllTiersFailed is returned by Chain.Write when no tier accepted the record.
var ErrAllTiersFailed = errors.New("all dream dna tiers failed")

const (
	TierNone    = "none"
	PendingNote = "Dream DNA sync pending"

	DomainSource = "domain_selection"
)

// Record is a best-effort Dream DNA write.
type Record struct {
	UserID     uuid.UUID
	Insight    extractor.Insight
	Source     string
	PriceLevel string
}

// Tier is one storage generation in the fallback chain.
type Tier interface {
	Name() string
	// Note is the user-facing explanation reported when this tier took the write.
	Note() string
	Write(ctx context.Context, rec Record) error
}

type Attempt struct {
	Tier  string `json:"tier"`
	Error string `json:"error,omitempty"`
}

// Written reports which tier received a record.
type Written struct {
	Tier     string    `json:"saved_to"`
	Note     string    `json:"note,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// Chain tries its tiers in order and stops at the first success.
type Chain struct {
	tiers  []Tier
	logger *slog.Logger
}

func NewChain(logger *slog.Logger, tiers ...Tier) *Chain {
	return &Chain{tiers: tiers, logger: logger}
}

// Tiers returns the tier names in order.
func (c *Chain) Tiers() []string {
	names := make([]string, len(c.tiers))
	for i, t := range c.tiers {
		names[i] = t.Name()
	}
	return names
}

// Write always returns a usable Written. When every tier fails it reports
// TierNone with PendingNote alongside an error wrapping ErrAllTiersFailed.
func (c *Chain) Write(ctx context.Context, rec Record) (Written, error) {
	var (
		attempts []Attempt
		errs     []error
	)
	for _, tier := range c.tiers {
		err := tier.Write(ctx, rec)
		if err == nil {
			attempts = append(attempts, Attempt{Tier: tier.Name()})
			return Written{Tier: tier.Name(), Note: tier.Note(), Attempts: attempts}, nil
		}
		c.logger.Warn("dream dna tier failed", "tier", tier.Name(), "user_id", rec.UserID, "error", err)
		attempts = append(attempts, Attempt{Tier: tier.Name(), Error: err.Error()})
		errs = append(errs, fmt.Errorf("%s: %w", tier.Name(), err))
	}

	c.logger.Error("all dream dna tiers failed", "user_id", rec.UserID, "attempts", len(attempts))
	return Written{Tier: TierNone, Note: PendingNote, Attempts: attempts},
		fmt.Errorf("%w: %w", ErrAllTiersFailed, errors.Join(errs...))
}

// DomainRecord derives a Dream DNA record from a domain choice: the business
// name comes from the domain's first label and the price level from its price.
func DomainRecord(userID uuid.UUID, domain string, price float64) Record {
	rec := Record{UserID: userID, Source: DomainSource, PriceLevel: PriceLevel(price)}
	if name := BusinessNameFromDomain(domain); name != "" {
		rec.Insight.BusinessName = &name
	}
	return rec
}

// BusinessNameFromDomain turns "acme-bakery.com" into "Acme Bakery" and
// "xn--caf-dma.com" into "Café".
func BusinessNameFromDomain(domain string) string {
	host := strings.ToLower(strings.TrimSpace(domain))
	if u, err := url.Parse(host); err == nil && u.Host != "" {
		host = u.Host
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "www.")
	label, _, _ := strings.Cut(host, ".")
	if u, err := idna.Punycode.ToUnicode(label); err == nil {
		label = u
	}

	words := strings.FieldsFunc(label, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// PriceLevel buckets a yearly domain price. Non-positive prices are unknown.
func PriceLevel(price float64) string {
	switch {
	case price <= 0:
		return ""
	case price < 15:
		return "budget"
	case price < 50:
		return "standard"
	default:
		return "premium"
	}
}

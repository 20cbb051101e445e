// Package personalize builds the voice assistant's system prompt from what
// DreamSeed already knows about a founder.
package personalize

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
)

// MaxSummaries caps how many recent call summaries go into a prompt.
const MaxSummaries = 3

type fact struct {
	label    string
	value    *string
	question string
}

var archetypeFocus = map[string]string{
	string(classify.ArchetypeInnovator): "Probe the technology itself: what it does that nothing else can, and how it stays ahead.",
	string(classify.ArchetypePioneer):   "Explore the bold bet: what must be true for it to work and how they will test that cheaply.",
	string(classify.ArchetypeScaler):    "Dig into growth: which channels reach new markets and what breaks as volume grows.",
	string(classify.ArchetypeOptimizer): "Focus on the fundamentals: who pays, how much, and how to deliver reliably every day.",
}

const basePrompt = `You are the DreamSeed interview guide, a warm and curious business coach on a voice call with a founder.
Keep turns short and conversational. Ask one question at a time and reflect back what you hear.
Never invent facts about the founder's business.`

// BuildPrompt renders the system prompt for a snapshot. The output depends
// only on its inputs.
func BuildPrompt(snap dreamdna.Snapshot, summaries []string) string {
	in := snap.Insight()
	facts := []fact{
		{"Business name", in.BusinessName, "What is the business called, or what might it be called?"},
		{"Problem", in.ProblemStatement, "What problem does the business solve, and for whom is it painful?"},
		{"Customers", in.TargetMarket, "Who exactly are the customers?"},
		{"Edge", in.CompetitiveEdge, "Why would customers choose them over the alternatives?"},
		{"Main offering", in.PrimaryService, "What is the main product or service?"},
		{"Revenue", in.RevenueModel, "How will the business make money?"},
		{"Business model", in.BusinessModel, "Is it a subscription, marketplace, service or something else?"},
		{"Stage", in.BusinessStage, "How far along is the business today?"},
		{"Industry", in.Industry, "Which industry does the business belong to?"},
	}
	known := lo.Filter(facts, func(f fact, _ int) bool { return extractor.Present(f.value) })
	gaps := lo.Reject(facts, func(f fact, _ int) bool { return extractor.Present(f.value) })

	var b strings.Builder
	b.WriteString(basePrompt)

	if len(known) > 0 {
		b.WriteString("\n\nWhat you already know (confirm gently, do not re-ask):\n")
		b.WriteString(strings.Join(lo.Map(known, func(f fact, _ int) string {
			return fmt.Sprintf("- %s: %s", f.label, extractor.Value(f.value))
		}), "\n"))
	}

	if len(gaps) > 0 {
		b.WriteString("\n\nStill unknown, cover these naturally:\n")
		b.WriteString(strings.Join(lo.Map(gaps, func(f fact, _ int) string {
			return "- " + f.question
		}), "\n"))
	}

	if snap.Type != nil {
		if focus, ok := archetypeFocus[snap.Type.BusinessArchetype]; ok {
			fmt.Fprintf(&b, "\n\nThis founder reads as a %s. %s", snap.Type.BusinessArchetype, focus)
		}
	}

	recent := lo.Filter(summaries, func(s string, _ int) bool { return strings.TrimSpace(s) != "" })
	if len(recent) > MaxSummaries {
		recent = recent[:MaxSummaries]
	}
	if len(recent) > 0 {
		b.WriteString("\n\nRecent conversations, newest first:\n")
		b.WriteString(strings.Join(lo.Map(recent, func(s string, i int) string {
			return fmt.Sprintf("%d. %s", i+1, s)
		}), "\n"))
	}

	if len(known) == 0 {
		b.WriteString("\n\nThis is the first conversation. Start by asking what they want to build.")
	}
	return b.String()
}

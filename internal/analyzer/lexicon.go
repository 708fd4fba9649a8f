package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/innerbloomapp/innerbloom/go-engine/internal/core"
)

// #region lexicons
// coreLexicon binds journal language to one core: uplift phrases evidence
// the core strengthening, strain phrases evidence it wavering.
type coreLexicon struct {
	uplift []string
	strain []string
}

var lexicons = map[string]coreLexicon{
	"optimism": {
		uplift: []string{
			"looking forward", "hopeful", "silver lining", "things will work out",
			"excited about", "bright side", "grateful for", "good things ahead",
			"felt lighter", "it might actually work",
		},
		strain: []string{
			"what's the point", "pointless", "never gets better", "hopeless",
			"nothing to look forward", "dread", "no use trying",
		},
	},
	"resilience": {
		uplift: []string{
			"got back up", "kept going", "pushed through", "tried again",
			"bounced back", "didn't give up", "one step at a time",
			"made it through", "steadied myself", "still standing",
		},
		strain: []string{
			"gave up", "can't cope", "too much for me", "falling apart",
			"couldn't face", "want to quit", "crushed me",
		},
	},
	"self_awareness": {
		uplift: []string{
			"i noticed", "i realized", "i tend to", "my pattern",
			"caught myself", "reflecting on", "i understand why i",
			"named the feeling", "sat with the feeling", "i know this about myself",
		},
		strain: []string{
			"don't know why i", "can't explain it", "went numb",
			"on autopilot", "didn't notice until", "lost touch with myself",
		},
	},
	"empathy": {
		uplift: []string{
			"i listened", "their perspective", "put myself in",
			"they must feel", "checked in on", "held space",
			"i understood her", "i understood him", "felt for them", "asked how they were",
		},
		strain: []string{
			"couldn't care less", "tired of people", "snapped at",
			"dismissed", "didn't listen", "shut them out",
		},
	},
	"creativity": {
		uplift: []string{
			"new idea", "sketched", "wrote a", "experimented",
			"imagined", "made something", "played with", "what if i",
			"tried a different way", "started a project",
		},
		strain: []string{
			"uninspired", "blank page", "stuck in a rut", "same old",
			"no ideas", "creatively drained",
		},
	},
	"curiosity": {
		uplift: []string{
			"i wonder", "curious about", "looked up", "learned about",
			"rabbit hole", "asked questions", "wanted to know",
			"explored", "dug into", "read up on",
		},
		strain: []string{
			"don't care anymore", "lost interest", "bored by",
			"stopped asking", "why bother learning",
		},
	},
}

// #endregion lexicons

// #region lexicon-analyzer
// LexiconAnalyzer scores entries against fixed phrase lists. It is the
// offline analyzer used when no OpenAI key is configured and the
// deterministic analyzer used by replay fixtures, so the same entry always
// produces the same signals.
type LexiconAnalyzer struct{}

// NewLexiconAnalyzer returns the phrase-list analyzer.
func NewLexiconAnalyzer() *LexiconAnalyzer {
	return &LexiconAnalyzer{}
}

// Analyze matches the entry against every core's phrase lists. The dominant
// direction suggests the adjacent depth, with strength growing per matched
// phrase: one hit stays below every ascent threshold, repeated hits clear
// them.
func (l *LexiconAnalyzer) Analyze(ctx context.Context, entry JournalEntry, cores []core.EmotionalCore) (map[string]core.ResonanceSignal, error) {
	lower := strings.ToLower(entry.Text)
	themes := themeTokens(entry.Text, 3)

	signals := make(map[string]core.ResonanceSignal)
	for _, c := range cores {
		lex, ok := lexicons[c.ID]
		if !ok {
			continue
		}
		upHits := matchPhrases(lower, lex.uplift)
		strainHits := matchPhrases(lower, lex.strain)
		if len(upHits) == 0 && len(strainHits) == 0 {
			continue
		}

		dominant := upHits
		suggested := c.Depth
		direction := "strengthening"
		if len(strainHits) > len(upHits) {
			dominant = strainHits
			direction = "wavering"
			if suggested > core.Dormant {
				suggested--
			}
		} else if suggested < core.Transcendent {
			suggested++
		}

		transitionSignals := []string{fmt.Sprintf("%s language around %s", direction, c.Name)}
		if len(themes) > 0 {
			transitionSignals = append(transitionSignals, "themes: "+strings.Join(themes, ", "))
		}

		signals[c.ID] = core.ResonanceSignal{
			DepthIndicator:     suggested.String(),
			ResonanceStrength:  phraseStrength(len(dominant)),
			TransitionSignals:  transitionSignals,
			SupportingEvidence: quotePhrases(dominant),
		}
	}
	return signals, nil
}

// #endregion lexicon-analyzer

// #region helpers
func matchPhrases(lower string, phrases []string) []string {
	var hits []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

// phraseStrength maps a hit count to a resonance strength: 0.52 for a single
// hit, 0.12 more per additional hit, capped at 0.95.
func phraseStrength(hits int) float64 {
	strength := 0.4 + 0.12*float64(hits)
	if strength > 0.95 {
		strength = 0.95
	}
	return strength
}

func quotePhrases(phrases []string) []string {
	limit := len(phrases)
	if limit > 3 {
		limit = 3
	}
	out := make([]string, 0, limit)
	for _, p := range phrases[:limit] {
		out = append(out, fmt.Sprintf("mentions %q", p))
	}
	return out
}

// #endregion helpers

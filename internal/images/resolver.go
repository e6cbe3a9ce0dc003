package images

import (
	"math/rand"
	"strings"

	"github.com/omkarlalla-code/kiosk-project/internal/convo"
	"github.com/omkarlalla-code/kiosk-project/internal/metrics"
)

// Scoring weights from spec §4.5.
const (
	weightKeywordToken     = 10
	weightKeywordSubstring = 5
	weightCategoryMatch    = 3
	weightTitleSubstring   = 15
	weightIDSubstring      = 30

	// defaultFallbackK is the number of catalogue entries sampled for a
	// zero-score fallback, per spec's "K default = 3".
	defaultFallbackK = 3
)

// Resolver resolves abstract ImageRefs against a catalogue Store.
type Resolver struct {
	store *Store
	rng   *rand.Rand
	k     int
}

// NewResolver returns a Resolver backed by store, using its own seeded
// random source (never the shared global one) so callers can substitute a
// deterministic *rand.Rand in tests via WithRand.
func NewResolver(store *Store) *Resolver {
	return &Resolver{
		store: store,
		rng:   rand.New(rand.NewSource(1)), //nolint:gosec // not security-sensitive; deterministic catalogue sampling
		k:     defaultFallbackK,
	}
}

// WithRand substitutes the Resolver's random source, for deterministic tests.
func (r *Resolver) WithRand(rng *rand.Rand) *Resolver {
	r.rng = rng
	return r
}

// Resolve translates ref into a concrete Descriptor. If no catalogue entry
// scores above zero, an entry drawn uniformly at random from the first k
// catalogue entries is returned instead and matched is false (a warning
// should be logged by the caller, per spec §4.5).
func (r *Resolver) Resolve(ref convo.ImageRef) (desc Descriptor, matched bool) {
	entries := r.store.Current().Entries()
	if len(entries) == 0 {
		metrics.RecordImageResolution("fallback")
		return Descriptor{}, false
	}

	search := strings.ToLower(strings.TrimSpace(ref.ID + " " + ref.Title + " " + ref.Category))
	tokens := strings.Fields(search)

	bestScore := 0
	bestIdx := -1
	for i, e := range entries {
		score := scoreEntry(e, search, tokens)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	if bestIdx >= 0 {
		metrics.RecordImageResolution("matched")
		return entries[bestIdx], true
	}

	metrics.RecordImageResolution("fallback")
	return r.randomFallback(entries), false
}

func scoreEntry(e Descriptor, search string, tokens []string) int {
	score := 0

	for _, kw := range e.Keywords {
		kwLower := strings.ToLower(kw)
		for _, tok := range tokens {
			if kwLower == tok {
				score += weightKeywordToken
			}
		}
		if strings.Contains(search, kwLower) {
			score += weightKeywordSubstring
		}
	}

	categoryLower := strings.ToLower(e.Category)
	for _, tok := range tokens {
		if categoryLower != "" && categoryLower == tok {
			score += weightCategoryMatch
			break
		}
	}

	if e.Title != "" && strings.Contains(search, strings.ToLower(e.Title)) {
		score += weightTitleSubstring
	}

	if e.ID != "" && strings.Contains(search, strings.ToLower(e.ID)) {
		score += weightIDSubstring
	}

	return score
}

// randomFallback returns a uniformly random sample from up to k entries.
// With no scoring signal to break ties, the specific entry returned is
// genuinely arbitrary; only the sampling pool size (k) is bounded.
func (r *Resolver) randomFallback(entries []Descriptor) Descriptor {
	k := r.k
	if k > len(entries) {
		k = len(entries)
	}
	idx := r.rng.Intn(k)
	return entries[idx]
}

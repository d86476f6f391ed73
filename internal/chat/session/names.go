package session

import (
	"math"
	"math/rand/v2"
	"strconv"
)

// IntSource draws uniform integers in [0, n).
type IntSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NameGenerator produces default display names of the form <prefix><n>.
type NameGenerator struct {
	prefix      string
	span        int
	maxAttempts int
	src         IntSource
}

// NewNameGenerator creates a generator drawing n uniformly from [1, span).
// After maxAttempts consecutive collisions the span is widened tenfold.
// A nil src uses the process-wide random source.
//
// Precondition: span >= 2; maxAttempts >= 1.
func NewNameGenerator(prefix string, span, maxAttempts int, src IntSource) *NameGenerator {
	if span < 2 {
		span = 2
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if src == nil {
		src = globalSource{}
	}
	return &NameGenerator{
		prefix:      prefix,
		span:        span,
		maxAttempts: maxAttempts,
		src:         src,
	}
}

// Generate returns a name for which taken reports false.
//
// Precondition: taken must not hold locks the caller cannot re-enter.
// Postcondition: The returned name is not taken at the time of the last check.
func (g *NameGenerator) Generate(taken func(name string) bool) string {
	span := g.span
	attempts := 0
	for {
		name := g.prefix + strconv.Itoa(1+g.src.IntN(span-1))
		if !taken(name) {
			return name
		}
		attempts++
		if attempts >= g.maxAttempts {
			attempts = 0
			if span <= math.MaxInt32/10 {
				span *= 10
			}
		}
	}
}

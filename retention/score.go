package retention

import (
	"math"
	"time"

	"github.com/gogpu/ink"
)

// Scoring holds the importance heuristic parameters. The defaults are
// tuning values, not semantic constants.
type Scoring struct {
	// CollaborativeBoost multiplies the score of strokes from other users.
	CollaborativeBoost float64
	// AgeHalfLife is the stroke age at which the age factor halves.
	AgeHalfLife time.Duration
	// MinAgeFactor clamps the age factor from below.
	MinAgeFactor float64
	// RecencyWindow is the decay constant of the recency bonus.
	RecencyWindow time.Duration
	// ReferenceWidth is the stroke size with a width factor of 1.
	ReferenceWidth float64
	// MinWidthFactor and MaxWidthFactor clamp the width factor.
	MinWidthFactor float64
	MaxWidthFactor float64
	// FrequencyStep is the bonus per access, saturating at MaxFrequencyBonus.
	FrequencyStep     float64
	MaxFrequencyBonus float64
	// ModificationStep is the bonus per edit, saturating at
	// MaxModificationBonus.
	ModificationStep     float64
	MaxModificationBonus float64
	// MinImportance is the score floor; scores never reach zero.
	MinImportance float64
}

// DefaultScoring returns the default importance parameters.
func DefaultScoring() Scoring {
	return Scoring{
		CollaborativeBoost:   1.5,
		AgeHalfLife:          48 * time.Hour,
		MinAgeFactor:         0.1,
		RecencyWindow:        time.Hour,
		ReferenceWidth:       2,
		MinWidthFactor:       0.5,
		MaxWidthFactor:       2,
		FrequencyStep:        0.1,
		MaxFrequencyBonus:    3,
		ModificationStep:     0.2,
		MaxModificationBonus: 2,
		MinImportance:        0.01,
	}
}

// Validate checks the scoring parameters.
func (s Scoring) Validate() error {
	for _, err := range []error{
		ink.RequirePositive("retention", "Scoring.CollaborativeBoost", s.CollaborativeBoost),
		ink.RequirePositive("retention", "Scoring.AgeHalfLife", int64(s.AgeHalfLife)),
		ink.RequirePositive("retention", "Scoring.MinAgeFactor", s.MinAgeFactor),
		ink.RequirePositive("retention", "Scoring.RecencyWindow", int64(s.RecencyWindow)),
		ink.RequirePositive("retention", "Scoring.ReferenceWidth", s.ReferenceWidth),
		ink.RequirePositive("retention", "Scoring.MinWidthFactor", s.MinWidthFactor),
		ink.RequirePositive("retention", "Scoring.MaxWidthFactor", s.MaxWidthFactor),
		ink.RequireNonNegative("retention", "Scoring.FrequencyStep", s.FrequencyStep),
		ink.RequirePositive("retention", "Scoring.MaxFrequencyBonus", s.MaxFrequencyBonus),
		ink.RequireNonNegative("retention", "Scoring.ModificationStep", s.ModificationStep),
		ink.RequirePositive("retention", "Scoring.MaxModificationBonus", s.MaxModificationBonus),
		ink.RequirePositive("retention", "Scoring.MinImportance", s.MinImportance),
	} {
		if err != nil {
			return err
		}
	}
	if s.MinWidthFactor > s.MaxWidthFactor {
		return &ink.ConfigError{Component: "retention", Field: "Scoring.MinWidthFactor", Reason: "exceeds MaxWidthFactor"}
	}
	return nil
}

// ageFactor decays by half every AgeHalfLife, clamped to [MinAgeFactor, 1].
func (s Scoring) ageFactor(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	f := math.Exp2(-float64(age) / float64(s.AgeHalfLife))
	return clamp(f, s.MinAgeFactor, 1)
}

func (s Scoring) widthFactor(size float64) float64 {
	return clamp(size/s.ReferenceWidth, s.MinWidthFactor, s.MaxWidthFactor)
}

func (s Scoring) collaborativeFactor(collaborative bool) float64 {
	if collaborative {
		return s.CollaborativeBoost
	}
	return 1
}

// recencyFactor is 2 for a stroke accessed just now and decays towards 1.
func (s Scoring) recencyFactor(sinceAccess time.Duration) float64 {
	if sinceAccess < 0 {
		sinceAccess = 0
	}
	return 1 + math.Exp(-float64(sinceAccess)/float64(s.RecencyWindow))
}

func (s Scoring) frequencyFactor(accesses uint64) float64 {
	return clamp(1+float64(accesses)*s.FrequencyStep, 1, s.MaxFrequencyBonus)
}

func (s Scoring) modificationFactor(edits uint64) float64 {
	return clamp(1+float64(edits)*s.ModificationStep, 1, s.MaxModificationBonus)
}

// initial scores a freshly added stroke.
func (s Scoring) initial(st *ink.Stroke, collaborative bool, now time.Time) float64 {
	score := 1.0 *
		s.collaborativeFactor(collaborative) *
		s.widthFactor(st.Size) *
		s.ageFactor(now.Sub(st.CreatedAt()))
	return math.Max(score, s.MinImportance)
}

// recompute scores a resident stroke from its access history.
func (s Scoring) recompute(m *managedStroke, now time.Time) float64 {
	score := 1.0 *
		s.frequencyFactor(m.accessCount) *
		s.recencyFactor(now.Sub(m.lastAccessed)) *
		s.modificationFactor(m.modCount) *
		s.collaborativeFactor(m.collaborative) *
		s.ageFactor(now.Sub(m.stroke.CreatedAt()))
	return math.Max(score, s.MinImportance)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

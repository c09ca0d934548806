// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package scoring turns a finished session into range-of-motion figures and
// an ordinal motor-function score, and summarises pain ratings.
package scoring

import (
	"sort"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/relabs-tech/rehab_computer/internal/session"
)

// ExerciseScore is the outcome of one measured exercise.
type ExerciseScore struct {
	Exercise  string  `json:"exercise,omitempty"`
	SessionID string  `json:"session_id,omitempty"`
	ROMHip    float64 `json:"rom_hip"`
	ROMKnee   float64 `json:"rom_knee"`
	ROMAnkle  float64 `json:"rom_ankle"`
	Score     int     `json:"score"`
}

// Score computes ROM per joint and the ordinal score. An empty session
// scores zero everywhere.
func Score(s session.Session) ExerciseScore {
	out := ExerciseScore{SessionID: s.ID}
	n := len(s.Samples)
	if n == 0 {
		return out
	}

	samples := append([]session.DerivedSample(nil), s.Samples...)
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].TimestampMs < samples[j].TimestampMs
	})

	hip := make([]float64, n)
	knee := make([]float64, n)
	ankle := make([]float64, n)
	for i, smp := range samples {
		hip[i], knee[i], ankle[i] = smp.Hip, smp.Knee, smp.Ankle
	}

	out.ROMHip = rangeOf(hip)
	out.ROMKnee = rangeOf(knee)
	out.ROMAnkle = rangeOf(ankle)
	out.Score = KneeScore(out.ROMKnee)
	return out
}

func rangeOf(x []float64) float64 {
	return floats.Max(x) - floats.Min(x)
}

// KneeScore maps knee ROM onto the 0/1/2 scale used by the clinic.
// Anything between the named bands also scores 1; that coarse bucket is
// the agreed clinical policy.
func KneeScore(romKnee float64) int {
	switch {
	case romKnee >= 90:
		return 2
	case romKnee >= 40 && romKnee <= 50:
		return 1
	case romKnee < 10:
		return 0
	default:
		return 1
	}
}

// Scorer keeps the latest score per exercise name.
type Scorer struct {
	log *zap.Logger

	mu     sync.Mutex
	scores map[string]ExerciseScore
}

func NewScorer(log *zap.Logger) *Scorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scorer{log: log, scores: make(map[string]ExerciseScore)}
}

// ScoreSession scores s and stores the result under exercise, replacing
// any earlier measurement of the same exercise.
func (sc *Scorer) ScoreSession(s session.Session, exercise string) ExerciseScore {
	res := Score(s)
	res.Exercise = exercise

	sc.mu.Lock()
	sc.scores[exercise] = res
	sc.mu.Unlock()

	sc.log.Info("exercise scored",
		zap.String("exercise", exercise),
		zap.String("session_id", s.ID),
		zap.Float64("rom_hip", res.ROMHip),
		zap.Float64("rom_knee", res.ROMKnee),
		zap.Float64("rom_ankle", res.ROMAnkle),
		zap.Int("score", res.Score))
	return res
}

// Get returns the stored score for exercise.
func (sc *Scorer) Get(exercise string) (ExerciseScore, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	res, ok := sc.scores[exercise]
	return res, ok
}

// Scores returns all stored scores sorted by exercise name.
func (sc *Scorer) Scores() []ExerciseScore {
	sc.mu.Lock()
	out := make([]ExerciseScore, 0, len(sc.scores))
	for _, s := range sc.scores {
		out = append(out, s)
	}
	sc.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Exercise < out[j].Exercise })
	return out
}

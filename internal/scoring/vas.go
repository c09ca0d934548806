// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package scoring

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrVasOutOfRange = errors.New("vas value must be between 0 and 10")
	ErrUnknownRegion = errors.New("unknown region")
	ErrUnknownPhase  = errors.New("unknown phase")
)

// Region is the body region an exercise works on.
type Region string

const (
	RegionHip   Region = "hip"
	RegionKnee  Region = "knee"
	RegionAnkle Region = "ankle"
)

// ParseRegion accepts the region name in any case.
func ParseRegion(s string) (Region, error) {
	switch r := Region(strings.ToLower(strings.TrimSpace(s))); r {
	case RegionHip, RegionKnee, RegionAnkle:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRegion, s)
}

// Phase says whether a pain rating was taken before or after the exercise.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

func ParsePhase(s string) (Phase, error) {
	switch p := Phase(strings.ToLower(strings.TrimSpace(s))); p {
	case PhaseBefore, PhaseAfter:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
}

// VasRecord is one visual analogue scale pain rating.
type VasRecord struct {
	PatientCode  string    `json:"patient_code,omitempty"`
	ExerciseName string    `json:"exercise_name,omitempty"`
	Region       Region    `json:"region"`
	Phase        Phase     `json:"phase"`
	Value        float64   `json:"value"`
	Timestamp    time.Time `json:"timestamp"`
}

// Trend qualifies the change between the before and after ratings.
type Trend string

const (
	TrendIncreased Trend = "increased"
	TrendDecreased Trend = "decreased"
	TrendUnchanged Trend = "unchanged"
)

// VasSummary pairs the latest before and after ratings for a region.
type VasSummary struct {
	Region Region     `json:"region"`
	Before *VasRecord `json:"before,omitempty"`
	After  *VasRecord `json:"after,omitempty"`
	// Diff is After - Before, set only when both exist.
	Diff  *float64 `json:"diff,omitempty"`
	Trend Trend    `json:"trend,omitempty"`
}

// VasLog is an append-only log of pain ratings.
type VasLog struct {
	now func() time.Time

	mu      sync.Mutex
	records []VasRecord
}

func NewVasLog() *VasLog {
	return &VasLog{now: time.Now}
}

// Record validates and appends one rating.
func (l *VasLog) Record(region Region, phase Phase, value float64, patientCode, exerciseName string) (VasRecord, error) {
	region, err := ParseRegion(string(region))
	if err != nil {
		return VasRecord{}, err
	}
	phase, err = ParsePhase(string(phase))
	if err != nil {
		return VasRecord{}, err
	}
	if !(value >= 0 && value <= 10) {
		return VasRecord{}, fmt.Errorf("%w: got %v", ErrVasOutOfRange, value)
	}

	rec := VasRecord{
		PatientCode:  patientCode,
		ExerciseName: exerciseName,
		Region:       region,
		Phase:        phase,
		Value:        value,
		Timestamp:    l.now(),
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return rec, nil
}

// Records returns a copy of the log.
func (l *VasLog) Records() []VasRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]VasRecord(nil), l.records...)
}

// Summarize finds the latest before and after ratings for region. An empty
// patientCode matches every patient.
func (l *VasLog) Summarize(region Region, patientCode string) VasSummary {
	recs := l.Records()

	sum := VasSummary{Region: region}
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		if r.Region != region || (patientCode != "" && r.PatientCode != patientCode) {
			continue
		}
		switch {
		case r.Phase == PhaseBefore && sum.Before == nil:
			sum.Before = &r
		case r.Phase == PhaseAfter && sum.After == nil:
			sum.After = &r
		}
		if sum.Before != nil && sum.After != nil {
			break
		}
	}

	if sum.Before != nil && sum.After != nil {
		d := sum.After.Value - sum.Before.Value
		sum.Diff = &d
		switch {
		case d > 0:
			sum.Trend = TrendIncreased
		case d < 0:
			sum.Trend = TrendDecreased
		default:
			sum.Trend = TrendUnchanged
		}
	}
	return sum
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package emg turns raw EMG readings into RMS and envelope values and lines
// them up with the joint-angle stream.
package emg

import (
	"math"
	"sync"

	"github.com/relabs-tech/rehab_computer/internal/frame"
)

// Config controls the EMG processor.
type Config struct {
	SensorID     int     // only this sensor is attached to joint samples
	WindowSize   int     // RMS window length in samples
	EnvelopeBeta float64 // envelope smoothing factor
	SyncWindowMs float64 // max |t_emg - t_joint| for attaching EMG
}

func DefaultConfig() Config {
	return Config{
		SensorID:     5,
		WindowSize:   DefaultWindowSize,
		EnvelopeBeta: 0.1,
		SyncWindowMs: 80,
	}
}

// Sample is the last raw EMG reading seen.
type Sample struct {
	SensorID    int     `json:"id"`
	TimestampUs float64 `json:"t_us"`
	Value       float64 `json:"value"`
}

// Reading is the EMG data attached to one joint sample.
type Reading struct {
	SensorID int
	Value    float64
	RMS      float64
	Envelope float64
}

// Processor is written by the reader goroutine and read by request handlers,
// so it guards its state with its own mutex.
type Processor struct {
	cfg Config

	mu       sync.Mutex
	window   *Window
	last     Sample
	haveLast bool
	envelope float64
}

func NewProcessor(cfg Config) *Processor {
	return &Processor{
		cfg:    cfg,
		window: NewWindow(cfg.WindowSize),
	}
}

// Ingest records one EMG frame.
func (p *Processor) Ingest(f frame.EMG) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window.Push(f.Value)
	p.last = Sample{SensorID: f.SensorID, TimestampUs: f.TimestampUs, Value: f.Value}
	p.haveLast = true
}

// SampleFor returns the EMG reading to attach to a joint sample taken at
// tMs. It reports false when the last reading came from another sensor or
// falls outside the sync window. The envelope only advances on a hit.
func (p *Processor) SampleFor(tMs float64) (Reading, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.haveLast || p.last.SensorID != p.cfg.SensorID {
		return Reading{}, false
	}
	if math.Abs(p.last.TimestampUs/1000.0-tMs) > p.cfg.SyncWindowMs {
		return Reading{}, false
	}

	rms := p.window.RMS()
	p.envelope = p.cfg.EnvelopeBeta*rms + (1-p.cfg.EnvelopeBeta)*p.envelope
	return Reading{
		SensorID: p.last.SensorID,
		Value:    p.last.Value,
		RMS:      rms,
		Envelope: p.envelope,
	}, true
}

// Last returns the most recent raw reading.
func (p *Processor) Last() (Sample, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.haveLast
}

// RMS returns the current window RMS without touching the envelope.
func (p *Processor) RMS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.RMS()
}

// Reset clears the window, the last reading and the envelope.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.window.Reset()
	p.last = Sample{}
	p.haveLast = false
	p.envelope = 0
}

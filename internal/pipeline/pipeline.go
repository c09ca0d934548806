// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline fuses parsed sensor frames into derived joint samples.
package pipeline

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/emg"
	"github.com/relabs-tech/rehab_computer/internal/frame"
	"github.com/relabs-tech/rehab_computer/internal/kinematics"
	"github.com/relabs-tech/rehab_computer/internal/orientation"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

// Pipeline is driven by the single reader goroutine. Apart from the EMG
// processor, none of its parts lock.
type Pipeline struct {
	log      *zap.Logger
	agg      *orientation.Aggregator
	hip      *kinematics.HipResolver
	smoother *kinematics.Smoother
	emg      *emg.Processor

	resetPending atomic.Bool
}

func New(log *zap.Logger, hip *kinematics.HipResolver, smoother *kinematics.Smoother, emgProc *emg.Processor) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		log:      log,
		agg:      orientation.NewAggregator(),
		hip:      hip,
		smoother: smoother,
		emg:      emgProc,
	}
}

// Process feeds one frame through the pipeline. It returns a sample when an
// IMU frame completes the joint set.
func (p *Pipeline) Process(f frame.SensorFrame) (session.DerivedSample, bool) {
	if p.resetPending.CompareAndSwap(true, false) {
		p.reset()
	}
	switch f := f.(type) {
	case frame.EMG:
		p.emg.Ingest(f)
		return session.DerivedSample{}, false
	case frame.IMU:
		raw, ok := p.agg.Ingest(f)
		if !ok {
			return session.DerivedSample{}, false
		}
		return p.derive(raw), true
	default:
		p.log.Debug("unhandled frame type", zap.Any("frame", f))
		return session.DerivedSample{}, false
	}
}

func (p *Pipeline) derive(raw orientation.RawJointSample) session.DerivedSample {
	hip := p.hip.Resolve(raw.Hip, raw.Pitch2)

	s := session.DerivedSample{
		TimestampMs: raw.TimestampMs,
		Hip:         p.smoother.Smooth(kinematics.Hip, hip),
		Knee:        p.smoother.Smooth(kinematics.Knee, raw.Knee),
		Ankle:       p.smoother.Smooth(kinematics.Ankle, raw.Ankle),
	}
	if r, ok := p.emg.SampleFor(raw.TimestampMs); ok {
		s.EMG = &session.EMGData{
			SensorID: r.SensorID,
			Value:    r.Value,
			RMS:      r.RMS,
			Envelope: r.Envelope,
		}
	}
	return s
}

// HipMode reports the current hip direction guess. Like Process, it belongs
// to the reader goroutine.
func (p *Pipeline) HipMode() kinematics.HipMode { return p.hip.Mode() }

// RequestReset asks the pipeline to clear sensor state, hip direction and
// smoothing history before the next frame. Safe from any goroutine.
func (p *Pipeline) RequestReset() {
	p.resetPending.Store(true)
}

func (p *Pipeline) reset() {
	p.agg.Reset()
	p.hip.Reset()
	p.smoother.Reset()
	p.log.Debug("pipeline state reset")
}

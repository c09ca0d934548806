// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session buffers the derived samples of the running exercise and
// fans each one out to live subscribers.
package session

import (
	"fmt"
	"time"
)

// EMGData is the muscle activation attached to a joint sample.
type EMGData struct {
	SensorID int     `json:"id"`
	Value    float64 `json:"value"`
	RMS      float64 `json:"rms"`
	Envelope float64 `json:"envelope"`
}

// DerivedSample is one fused joint-angle sample. EMG is nil when no EMG
// reading fell inside the sync window, which is not the same as zero.
type DerivedSample struct {
	TimestampMs float64  `json:"t_ms"`
	Hip         float64  `json:"hip"`
	Knee        float64  `json:"knee"`
	Ankle       float64  `json:"ankle"`
	EMG         *EMGData `json:"emg,omitempty"`
}

// Angles holds one value per joint.
type Angles struct {
	Hip   float64 `json:"hip"`
	Knee  float64 `json:"knee"`
	Ankle float64 `json:"ankle"`
}

// State is the lifecycle state of the session buffer.
type State int

const (
	Idle State = iota
	Recording
	Stopped
)

func (s State) String() string {
	switch s {
	case Recording:
		return "recording"
	case Stopped:
		return "stopped"
	}
	return "idle"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "recording":
		*s = Recording
	case "stopped":
		*s = Stopped
	default:
		return fmt.Errorf("unknown session state %q", b)
	}
	return nil
}

// Session is a snapshot of one exercise recording.
type Session struct {
	ID        string          `json:"id"`
	State     State           `json:"state"`
	StartedAt time.Time       `json:"started_at"`
	StoppedAt time.Time       `json:"stopped_at,omitzero"`
	Samples   []DerivedSample `json:"samples"`
	MaxAngles Angles          `json:"max_angles"`
}

func (s Session) clone() Session {
	s.Samples = append([]DerivedSample(nil), s.Samples...)
	return s
}

// Event is the live broadcast payload.
type Event struct {
	T        float64  `json:"t"`
	Hip      float64  `json:"hip"`
	Knee     float64  `json:"knee"`
	Ankle    float64  `json:"ankle"`
	EMG      *float64 `json:"emg,omitempty"`
	EMGID    *int     `json:"emgId,omitempty"`
	EMGRMS   *float64 `json:"emgRms,omitempty"`
	EMGEnv   *float64 `json:"emgEnv,omitempty"`
	MaxHip   float64  `json:"maxHip"`
	MaxKnee  float64  `json:"maxKnee"`
	MaxAnkle float64  `json:"maxAnkle"`
	// Reset marks the synthetic event sent when the maxima are zeroed.
	Reset bool `json:"reset,omitempty"`
}

func newEvent(s DerivedSample, max Angles) Event {
	ev := Event{
		T:        s.TimestampMs,
		Hip:      s.Hip,
		Knee:     s.Knee,
		Ankle:    s.Ankle,
		MaxHip:   max.Hip,
		MaxKnee:  max.Knee,
		MaxAnkle: max.Ankle,
	}
	if s.EMG != nil {
		e := *s.EMG
		ev.EMG = &e.Value
		ev.EMGID = &e.SensorID
		ev.EMGRMS = &e.RMS
		ev.EMGEnv = &e.Envelope
	}
	return ev
}

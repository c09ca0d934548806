// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package kinematics

import (
	"fmt"
	"math"
)

// Channel names one joint.
type Channel int

const (
	Hip Channel = iota
	Knee
	Ankle
	numChannels
)

func (c Channel) String() string {
	switch c {
	case Hip:
		return "hip"
	case Knee:
		return "knee"
	case Ankle:
		return "ankle"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// ChannelConfig bounds and smooths one joint.
type ChannelConfig struct {
	Alpha float64
	Min   float64
	Max   float64
	// Abs takes the magnitude before clamping.
	Abs bool
}

// DefaultChannels are the physiological ranges used on the ward.
func DefaultChannels() [3]ChannelConfig {
	return [3]ChannelConfig{
		Hip:   {Alpha: 0.25, Min: -30.1, Max: 122.1},
		Knee:  {Alpha: 0.3, Min: 0, Max: 134, Abs: true},
		Ankle: {Alpha: 0.3, Min: 36, Max: 113, Abs: true},
	}
}

type ema struct {
	value float64
	have  bool
}

// Smoother is a per-channel exponential moving average. Values are clamped
// before they enter the filter so one wild sample cannot leave a long tail.
type Smoother struct {
	channels [3]ChannelConfig
	state    [3]ema
}

func NewSmoother(channels [3]ChannelConfig) *Smoother {
	return &Smoother{channels: channels}
}

// Smooth clamps x to the channel range and folds it into the average.
// The first value seen on a channel seeds the average directly.
func (s *Smoother) Smooth(c Channel, x float64) float64 {
	if c < 0 || c >= numChannels {
		return x
	}
	cfg := s.channels[c]
	if cfg.Abs {
		x = math.Abs(x)
	}
	x = math.Min(math.Max(x, cfg.Min), cfg.Max)

	st := &s.state[c]
	if !st.have {
		st.value = x
		st.have = true
		return x
	}
	st.value = cfg.Alpha*x + (1-cfg.Alpha)*st.value
	return st.value
}

// Reset drops the filter history of every channel.
func (s *Smoother) Reset() {
	s.state = [3]ema{}
}

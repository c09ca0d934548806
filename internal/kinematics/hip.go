// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package kinematics turns raw joint differences into the signed, clamped and
// smoothed angles shown to the therapist.
package kinematics

import "math"

// HipMode is the current guess of which side of the body the thigh is on.
type HipMode int

const (
	// HipFront means flexion: the leg is swung forward, hip angle positive.
	HipFront HipMode = iota
	// HipBack means extension: the leg is swung backward, hip angle negative.
	HipBack
)

func (m HipMode) String() string {
	if m == HipBack {
		return "back"
	}
	return "front"
}

// HipResolver picks the sign of the hip angle. Differencing two sensor rolls
// cannot tell forward from backward swing, so the thigh pitch decides, with
// hysteresis, and only while the limb passes near vertical.
type HipResolver struct {
	Crossover  float64 // |rawHip| below which the mode may change
	Midpoint   float64 // thigh pitch separating front from back
	Hysteresis float64 // half width of the dead band around Midpoint
	Deadzone   float64 // |rawHip| below which the output is 0

	mode HipMode
}

// NewHipResolver returns a resolver with the clinical defaults, in Front mode.
func NewHipResolver() *HipResolver {
	return &HipResolver{
		Crossover:  40,
		Midpoint:   90,
		Hysteresis: 10,
		Deadzone:   2,
	}
}

// Resolve updates the mode from (rawHip, pitch2) and returns the signed hip angle.
func (r *HipResolver) Resolve(rawHip, pitch2 float64) float64 {
	mag := math.Abs(rawHip)
	if mag < r.Crossover {
		switch {
		// the band edges belong to the dead band
		case pitch2 < r.Midpoint-r.Hysteresis:
			r.mode = HipFront
		case pitch2 > r.Midpoint+r.Hysteresis:
			r.mode = HipBack
		}
	}
	if mag < r.Deadzone {
		return 0
	}
	if r.mode == HipBack {
		return -mag
	}
	return mag
}

func (r *HipResolver) Mode() HipMode { return r.mode }

// Reset puts the resolver back in Front mode.
func (r *HipResolver) Reset() { r.mode = HipFront }

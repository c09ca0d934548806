// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
	"sort"

	"github.com/relabs-tech/rehab_computer/internal/frame"
)

// Pose is the last orientation reported by one body-worn sensor, in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Sensor ids on the leg, proximal to distal.
const (
	SensorPelvis = 1
	SensorThigh  = 2
	SensorShank  = 3
	SensorFoot   = 4
)

var (
	legacyRig = []int{SensorPelvis, SensorThigh, SensorShank}
	taggedRig = []int{SensorPelvis, SensorThigh, SensorShank, SensorFoot}
)

// NormalizeDegrees wraps x into (-180, 180].
func NormalizeDegrees(x float64) float64 {
	x = math.Mod(x, 360)
	if x > 180 {
		x -= 360
	} else if x <= -180 {
		x += 360
	}
	return x
}

// RawJointSample holds joint angles straight from sensor differencing,
// before direction resolution, clamping and smoothing.
type RawJointSample struct {
	TimestampMs float64
	Hip         float64
	Knee        float64
	Ankle       float64
	// Pitch2 is the thigh sensor pitch, used to tell hip flexion from extension.
	Pitch2 float64
	Layout frame.Layout
}

type reading struct {
	pose        Pose
	timestampMs float64
}

// Aggregator keeps the last known pose per sensor id and derives raw joint
// angles once every sensor of the rig has reported. It is owned by the
// reader goroutine and does no locking.
type Aggregator struct {
	table map[int]reading
}

func NewAggregator() *Aggregator {
	return &Aggregator{table: make(map[int]reading)}
}

// Ingest records f and returns a joint sample when the rig is complete.
func (a *Aggregator) Ingest(f frame.IMU) (RawJointSample, bool) {
	a.table[f.SensorID] = reading{
		pose:        Pose{Roll: f.Roll, Pitch: f.Pitch, Yaw: f.Yaw},
		timestampMs: f.TimestampMs,
	}

	rig := legacyRig
	if f.Layout == frame.LayoutTagged {
		rig = taggedRig
	}
	for _, id := range rig {
		if _, ok := a.table[id]; !ok {
			return RawJointSample{}, false
		}
	}

	pelvis := a.table[SensorPelvis].pose
	thigh := a.table[SensorThigh].pose
	shank := a.table[SensorShank].pose

	s := RawJointSample{
		TimestampMs: f.TimestampMs,
		Hip:         NormalizeDegrees(thigh.Roll - pelvis.Roll),
		Knee:        NormalizeDegrees(shank.Roll - thigh.Roll),
		Pitch2:      thigh.Pitch,
		Layout:      f.Layout,
	}
	if f.Layout == frame.LayoutTagged {
		foot := a.table[SensorFoot].pose
		s.Ankle = NormalizeDegrees(-foot.Roll - shank.Roll)
	} else {
		// the 3-sensor rig mounts the shank sensor so its pitch is the ankle angle
		s.Ankle = shank.Pitch
	}
	return s, true
}

// Pose returns the last pose seen for a sensor.
func (a *Aggregator) Pose(id int) (Pose, bool) {
	r, ok := a.table[id]
	return r.pose, ok
}

// Seen lists the sensor ids that have reported, ascending.
func (a *Aggregator) Seen() []int {
	ids := make([]int, 0, len(a.table))
	for id := range a.table {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Reset forgets every sensor.
func (a *Aggregator) Reset() {
	clear(a.table)
}

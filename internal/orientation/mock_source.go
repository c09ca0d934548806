// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"fmt"
	"math"
	"time"

	"github.com/relabs-tech/rehab_computer/internal/frame"
)

// MockSource generates protocol lines for a leg doing slow hip/knee flexion
// with a matching EMG burst, so the pipeline can run without hardware.
type MockSource struct {
	start  time.Time
	layout frame.Layout
	emgID  int
}

// NewMockSource creates a mock source speaking the given protocol layout.
func NewMockSource(layout frame.Layout, emgID int) *MockSource {
	return &MockSource{start: time.Now(), layout: layout, emgID: emgID}
}

// Lines returns one line per IMU sensor plus one EMG line for instant now.
func (m *MockSource) Lines(now time.Time) []string {
	elapsed := now.Sub(m.start)
	sec := elapsed.Seconds()
	ms := float64(elapsed.Milliseconds())

	hip := 45 + 45*math.Sin(sec*0.8)
	knee := 30 + 30*math.Sin(sec*0.8)
	ankle := 80 + 10*math.Cos(sec*0.8)

	thighRoll := hip
	shankRoll := thighRoll - knee
	emg := 0.4 * (1 + math.Sin(sec*0.8)) * math.Sin(sec*157)

	if m.layout == frame.LayoutTagged {
		footRoll := -ankle - shankRoll
		return []string{
			fmt.Sprintf("IMU,%d,%.0f,0.00,0.00,0.00", SensorPelvis, ms),
			fmt.Sprintf("IMU,%d,%.0f,0.00,%.2f,60.00", SensorThigh, ms, thighRoll),
			fmt.Sprintf("IMU,%d,%.0f,0.00,%.2f,0.00", SensorShank, ms, shankRoll),
			fmt.Sprintf("IMU,%d,%.0f,0.00,%.2f,0.00", SensorFoot, ms, footRoll),
			fmt.Sprintf("EMG,%d,%d,%.4f", m.emgID, elapsed.Microseconds(), emg),
		}
	}
	return []string{
		fmt.Sprintf("%d,%.0f,0.00,0.00,0.00", SensorPelvis, ms),
		fmt.Sprintf("%d,%.0f,0.00,%.2f,60.00", SensorThigh, ms, thighRoll),
		fmt.Sprintf("%d,%.0f,0.00,%.2f,%.2f", SensorShank, ms, shankRoll, ankle),
		fmt.Sprintf("EMG,%d,%d,%.4f", m.emgID, elapsed.Microseconds(), emg),
	}
}

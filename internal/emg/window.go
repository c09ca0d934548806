// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package emg

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultWindowSize is the number of raw EMG magnitudes kept for RMS.
const DefaultWindowSize = 200

// Window is a fixed-capacity FIFO of EMG magnitudes. The oldest value is
// overwritten once the window is full.
type Window struct {
	buf  []float64
	next int
	full bool
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Push stores |v|.
func (w *Window) Push(v float64) {
	w.buf[w.next] = math.Abs(v)
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

func (w *Window) Len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

func (w *Window) Cap() int { return len(w.buf) }

// Values returns the stored magnitudes, oldest first.
func (w *Window) Values() []float64 {
	if !w.full {
		return append([]float64(nil), w.buf[:w.next]...)
	}
	out := make([]float64, 0, len(w.buf))
	out = append(out, w.buf[w.next:]...)
	return append(out, w.buf[:w.next]...)
}

// RMS is the root mean square over the whole window, 0 when empty.
func (w *Window) RMS() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	x := w.buf[:n]
	return math.Sqrt(floats.Dot(x, x) / float64(n))
}

// Reset empties the window.
func (w *Window) Reset() {
	w.next = 0
	w.full = false
}

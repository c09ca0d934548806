package kinematics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHipResolver_ScriptedSequence(t *testing.T) {
	r := NewHipResolver()

	steps := []struct {
		rawHip, pitch2 float64
		mode           HipMode
		out            float64
	}{
		{30, 85, HipFront, 30},       // dead band keeps Front
		{5, 105, HipBack, -5},        // near vertical, pitch beyond band
		{60, 60, HipBack, -60},       // flexed: mode frozen even with low pitch
		{20, 95, HipBack, -20},       // dead band keeps Back
		{20, 80.5, HipBack, -20},     // still inside band
		{5, 70, HipFront, 5},         // crossing back
		{1.5, 120, HipBack, 0},       // deadzone zeroes output, mode still updates
		{-25, 50, HipFront, 25},      // sign comes from mode only
		{-39.9, 100, HipFront, 39.9}, // 100 is still inside the band
		{-39.9, 100.5, HipBack, -39.9},
	}
	for i, s := range steps {
		got := r.Resolve(s.rawHip, s.pitch2)
		assert.Equal(t, s.mode, r.Mode(), "step %d", i)
		assert.InDelta(t, s.out, got, 1e-9, "step %d", i)
	}
}

func TestHipResolver_BackHoldsInsideBand(t *testing.T) {
	r := NewHipResolver()
	r.Resolve(0, 110)
	assert.Equal(t, HipBack, r.Mode())

	for p := 80.0; p <= 100.0; p += 0.5 {
		for _, h := range []float64{-39, -10, 0, 10, 39} {
			r.Resolve(h, p)
			assert.Equal(t, HipBack, r.Mode(), "pitch=%v hip=%v", p, h)
		}
	}

	r.Resolve(5, 70)
	assert.Equal(t, HipFront, r.Mode())
}

func TestHipResolver_Reset(t *testing.T) {
	r := NewHipResolver()
	r.Resolve(0, 120)
	r.Reset()
	assert.Equal(t, HipFront, r.Mode())
	assert.Equal(t, "front", r.Mode().String())
}

func TestSmoother_ClampBeforeSmooth(t *testing.T) {
	s := NewSmoother(DefaultChannels())

	assert.Equal(t, 134.0, s.Smooth(Knee, 999))
	assert.LessOrEqual(t, s.Smooth(Knee, 999), 134.0)

	assert.Equal(t, 122.1, s.Smooth(Hip, 500))
	assert.Equal(t, 36.0, s.Smooth(Ankle, -10)) // |−10| below the floor
}

func TestSmoother_EMA(t *testing.T) {
	s := NewSmoother(DefaultChannels())

	assert.Equal(t, 20.0, s.Smooth(Knee, -20)) // seeded, magnitude taken
	assert.InDelta(t, 0.3*50+0.7*20, s.Smooth(Knee, 50), 1e-9)

	// channels are independent
	assert.Equal(t, -30.0, s.Smooth(Hip, -30))
	assert.InDelta(t, 0.25*10+0.75*-30, s.Smooth(Hip, 10), 1e-9)
}

func TestSmoother_Reset(t *testing.T) {
	s := NewSmoother(DefaultChannels())
	s.Smooth(Hip, 100)
	s.Reset()
	assert.Equal(t, 10.0, s.Smooth(Hip, 10))
}

func TestChannel_String(t *testing.T) {
	assert.Equal(t, "hip", Hip.String())
	assert.Equal(t, "ankle", Ankle.String())
	assert.Equal(t, "channel(7)", Channel(7).String())
}

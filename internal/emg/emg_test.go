package emg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/rehab_computer/internal/emg"
	"github.com/relabs-tech/rehab_computer/internal/frame"
)

func TestWindow_KeepsMostRecent(t *testing.T) {
	w := emg.NewWindow(200)
	for i := 1; i <= 250; i++ {
		w.Push(float64(i))
	}

	require.Equal(t, 200, w.Len())
	vals := w.Values()
	require.Len(t, vals, 200)
	assert.Equal(t, 51.0, vals[0])
	assert.Equal(t, 250.0, vals[199])

	var sum float64
	for i := 51; i <= 250; i++ {
		sum += float64(i * i)
	}
	assert.InDelta(t, math.Sqrt(sum/200), w.RMS(), 1e-9)
}

func TestWindow_StoresMagnitude(t *testing.T) {
	w := emg.NewWindow(4)
	w.Push(-3)
	w.Push(4)
	assert.Equal(t, []float64{3, 4}, w.Values())
	assert.InDelta(t, math.Sqrt(12.5), w.RMS(), 1e-12)

	w.Reset()
	assert.Equal(t, 0, w.Len())
	assert.Equal(t, 0.0, w.RMS())
}

func TestWindow_DefaultSize(t *testing.T) {
	assert.Equal(t, emg.DefaultWindowSize, emg.NewWindow(0).Cap())
}

func TestProcessor_SyncWindow(t *testing.T) {
	p := emg.NewProcessor(emg.DefaultConfig())

	_, ok := p.SampleFor(1000)
	assert.False(t, ok, "nothing ingested yet")

	p.Ingest(frame.EMG{SensorID: 5, TimestampUs: 1_000_000, Value: -2})

	r, ok := p.SampleFor(1080)
	require.True(t, ok, "80 ms is inside the window")
	assert.Equal(t, 5, r.SensorID)
	assert.Equal(t, -2.0, r.Value)
	assert.Equal(t, 2.0, r.RMS)
	assert.InDelta(t, 0.2, r.Envelope, 1e-12)

	_, ok = p.SampleFor(1080.5)
	assert.False(t, ok)
	_, ok = p.SampleFor(900)
	assert.False(t, ok)

	// envelope only moved on the hit
	r, ok = p.SampleFor(1000)
	require.True(t, ok)
	assert.InDelta(t, 0.1*2+0.9*0.2, r.Envelope, 1e-12)
}

func TestProcessor_WrongSensorNotAttached(t *testing.T) {
	p := emg.NewProcessor(emg.DefaultConfig())
	p.Ingest(frame.EMG{SensorID: 6, TimestampUs: 1_000_000, Value: 1})

	_, ok := p.SampleFor(1000)
	assert.False(t, ok)

	last, ok := p.Last()
	require.True(t, ok)
	assert.Equal(t, 6, last.SensorID)
	assert.Equal(t, 1.0, p.RMS())
}

func TestProcessor_Reset(t *testing.T) {
	p := emg.NewProcessor(emg.DefaultConfig())
	p.Ingest(frame.EMG{SensorID: 5, TimestampUs: 0, Value: 3})
	p.Reset()

	_, ok := p.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, p.RMS())
}

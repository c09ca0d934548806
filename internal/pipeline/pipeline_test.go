package pipeline_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relabs-tech/rehab_computer/internal/emg"
	"github.com/relabs-tech/rehab_computer/internal/frame"
	"github.com/relabs-tech/rehab_computer/internal/kinematics"
	"github.com/relabs-tech/rehab_computer/internal/pipeline"
	"github.com/relabs-tech/rehab_computer/internal/session"
)

func newPipeline() *pipeline.Pipeline {
	return pipeline.New(zap.NewNop(),
		kinematics.NewHipResolver(),
		kinematics.NewSmoother(kinematics.DefaultChannels()),
		emg.NewProcessor(emg.DefaultConfig()))
}

func feed(t *testing.T, p *pipeline.Pipeline, lines ...string) []session.DerivedSample {
	t.Helper()
	var out []session.DerivedSample
	for _, line := range lines {
		f, err := frame.Parse(line)
		require.NoError(t, err, line)
		if s, ok := p.Process(f); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestPipeline_EndToEndBroadcast(t *testing.T) {
	p := newPipeline()
	buf := session.NewBuffer(zap.NewNop())
	_, events := buf.Subscribe(4)
	buf.Start()

	samples := feed(t, p,
		"1,1000,0,0,0",
		"2,1000,0,30,0",
		"3,1000,0,10,0",
	)
	require.Len(t, samples, 1)
	s := samples[0]

	// rawHip 30 in Front mode, rawKnee -20 -> |knee|, legacy ankle pitch 0 clamped to 36
	assert.Equal(t, 1000.0, s.TimestampMs)
	assert.Equal(t, 30.0, s.Hip)
	assert.Equal(t, 20.0, s.Knee)
	assert.Equal(t, 36.0, s.Ankle)
	assert.Nil(t, s.EMG)

	buf.Append(s)
	ev := <-events
	assert.Equal(t, s.Hip, ev.Hip)
	assert.Equal(t, s.Knee, ev.Knee)
	assert.Equal(t, 30.0, ev.MaxHip)
	assert.Nil(t, ev.EMG)
}

func TestPipeline_HugeRollDoesNotStall(t *testing.T) {
	p := newPipeline()
	var frames []frame.SensorFrame
	for _, line := range []string{"1,0,0,0,0", "2,0,0,1e20,0", "3,0,0,0,0", "3,10,0,-1e300,0"} {
		f, err := frame.Parse(line)
		require.NoError(t, err, line)
		frames = append(frames, f)
	}

	done := make(chan []session.DerivedSample, 1)
	go func() {
		var out []session.DerivedSample
		for _, f := range frames {
			if s, ok := p.Process(f); ok {
				out = append(out, s)
			}
		}
		done <- out
	}()

	select {
	case samples := <-done:
		require.Len(t, samples, 2)
		for _, s := range samples {
			assert.GreaterOrEqual(t, s.Hip, -30.1)
			assert.LessOrEqual(t, s.Hip, 122.1)
			assert.GreaterOrEqual(t, s.Knee, 0.0)
			assert.LessOrEqual(t, s.Knee, 134.0)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline stalled on a huge roll value")
	}
}

func TestPipeline_AttachesSyncedEMG(t *testing.T) {
	p := newPipeline()
	samples := feed(t, p,
		"EMG,5,1000000,0.5",
		"1,1000,0,0,0",
		"2,1000,0,30,0",
		"3,1050,0,10,0",
		"3,1200,0,10,0", // 200 ms after the EMG reading
	)
	require.Len(t, samples, 2)

	require.NotNil(t, samples[0].EMG)
	assert.Equal(t, 5, samples[0].EMG.SensorID)
	assert.Equal(t, 0.5, samples[0].EMG.Value)
	assert.Equal(t, 0.5, samples[0].EMG.RMS)
	assert.InDelta(t, 0.05, samples[0].EMG.Envelope, 1e-12)

	assert.Nil(t, samples[1].EMG, "outside sync window means no EMG, not zero")
}

func TestPipeline_HipFlipsToBack(t *testing.T) {
	p := newPipeline()
	samples := feed(t, p,
		"1,0,0,0,0",
		"2,0,0,-5,120", // thigh pitched back while near vertical
		"3,0,0,0,60",
		"2,10,0,-20,120",
	)
	require.Len(t, samples, 2)
	assert.Equal(t, kinematics.HipBack, p.HipMode())
	assert.Equal(t, -5.0, samples[0].Hip)
	assert.InDelta(t, 0.25*-20+0.75*-5, samples[1].Hip, 1e-9)
}

func TestPipeline_TaggedRig(t *testing.T) {
	p := newPipeline()
	samples := feed(t, p,
		"IMU,1,0,0,0,0",
		"IMU,2,0,0,40,60",
		"IMU,3,0,0,-20,0",
	)
	assert.Empty(t, samples, "tagged rig waits for the foot sensor")

	samples = feed(t, p, "IMU,4,0,0,-60,0")
	require.Len(t, samples, 1)
	assert.Equal(t, 40.0, samples[0].Hip)
	assert.Equal(t, 60.0, samples[0].Knee)
	assert.Equal(t, 80.0, samples[0].Ankle)
}

func TestPipeline_RequestReset(t *testing.T) {
	p := newPipeline()
	feed(t, p, "1,0,0,0,0", "2,0,0,-5,120", "3,0,0,0,0")
	require.Equal(t, kinematics.HipBack, p.HipMode())

	p.RequestReset()
	samples := feed(t, p, "3,5,0,0,0")
	assert.Empty(t, samples, "sensor table cleared")
	assert.Equal(t, kinematics.HipFront, p.HipMode())
}

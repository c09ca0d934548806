package frame_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/rehab_computer/internal/frame"
)

func TestParse_LegacyIMU(t *testing.T) {
	f, err := frame.Parse("1,1000,10,20,30")
	require.NoError(t, err)

	imu, ok := f.(frame.IMU)
	require.True(t, ok, "expected IMU frame, got %T", f)
	assert.Equal(t, frame.IMU{
		SensorID:    1,
		TimestampMs: 1000,
		Yaw:         10,
		Roll:        20,
		Pitch:       30,
		Layout:      frame.LayoutLegacy,
	}, imu)
}

func TestParse_TaggedIMU(t *testing.T) {
	f, err := frame.Parse("IMU, 4, 1234.5, -1.5, +20.25, 88")
	require.NoError(t, err)

	imu := f.(frame.IMU)
	assert.Equal(t, 4, imu.SensorID)
	assert.Equal(t, 1234.5, imu.TimestampMs)
	assert.Equal(t, -1.5, imu.Yaw)
	assert.Equal(t, 20.25, imu.Roll)
	assert.Equal(t, 88.0, imu.Pitch)
	assert.Equal(t, frame.LayoutTagged, imu.Layout)
}

func TestParse_EMG(t *testing.T) {
	f, err := frame.Parse("emg 5 1500000 -0.42")
	require.NoError(t, err)

	emg, ok := f.(frame.EMG)
	require.True(t, ok)
	assert.Equal(t, 5, emg.Sensor())
	assert.Equal(t, 1500000.0, emg.TimestampUs)
	assert.Equal(t, 1500.0, emg.TimestampMs())
	assert.Equal(t, -0.42, emg.Value)
}

func TestParse_ExtraFieldsIgnored(t *testing.T) {
	f, err := frame.Parse("2,10,1,2,3,99,100")
	require.NoError(t, err)
	assert.Equal(t, 3.0, f.(frame.IMU).Pitch)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"empty", "", frame.ErrEmptyLine},
		{"blank", "  \r", frame.ErrEmptyLine},
		{"short legacy", "1,1000,10,20", frame.ErrTooFewFields},
		{"short tagged imu", "IMU,1,1000,10,20", frame.ErrTooFewFields},
		{"short emg", "EMG,5,1000", frame.ErrTooFewFields},
		{"float id", "1.5,1000,10,20,30", frame.ErrBadNumber},
		{"garbage number", "1,1000,abc,20,30", frame.ErrBadNumber},
		{"nan", "1,1000,NaN,20,30", frame.ErrBadNumber},
		{"inf", "EMG,5,1000,Inf", frame.ErrBadNumber},
		{"semicolon separated", "1;1000;10;20;30", frame.ErrTooFewFields},
		{"unknown tag", "GPS,1,2,3", frame.ErrUnknownTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := frame.Parse(tt.line)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var pe *frame.ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

package scoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/rehab_computer/internal/session"
)

func kneeSession(knees ...float64) session.Session {
	s := session.Session{ID: "s-1"}
	for i, k := range knees {
		s.Samples = append(s.Samples, session.DerivedSample{TimestampMs: float64(i), Knee: k, Ankle: 40})
	}
	return s
}

func TestKneeScore_Boundaries(t *testing.T) {
	tests := []struct {
		rom  float64
		want int
	}{
		{90, 2},
		{130, 2},
		{45, 1},
		{40, 1},
		{50, 1},
		{5, 0},
		{9.99, 0},
		{10, 1},
		{20, 1},
		{60, 1},
		{89.9, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KneeScore(tt.rom), "rom=%v", tt.rom)
	}
}

func TestScore_ROM(t *testing.T) {
	s := session.Session{Samples: []session.DerivedSample{
		{TimestampMs: 3, Hip: 40, Knee: 95, Ankle: 60},
		{TimestampMs: 1, Hip: -10, Knee: 5, Ankle: 40},
		{TimestampMs: 2, Hip: 20, Knee: 50, Ankle: 36},
	}}

	got := Score(s)
	assert.Equal(t, 50.0, got.ROMHip)
	assert.Equal(t, 90.0, got.ROMKnee)
	assert.Equal(t, 24.0, got.ROMAnkle)
	assert.Equal(t, 2, got.Score)
	assert.Equal(t, 3.0, s.Samples[0].TimestampMs, "input order untouched")
}

func TestScore_EmptySession(t *testing.T) {
	got := Score(session.Session{})
	assert.Equal(t, ExerciseScore{}, got)
	assert.Equal(t, 0, got.Score)
}

func TestScorer_OverwritesPerExercise(t *testing.T) {
	sc := NewScorer(nil)

	first := sc.ScoreSession(kneeSession(0, 45), "knee flexion")
	assert.Equal(t, 1, first.Score)
	assert.Equal(t, "knee flexion", first.Exercise)

	sc.ScoreSession(kneeSession(0, 100), "knee flexion")
	sc.ScoreSession(kneeSession(0, 3), "ankle flexion")

	got, ok := sc.Get("knee flexion")
	require.True(t, ok)
	assert.Equal(t, 2, got.Score)

	all := sc.Scores()
	require.Len(t, all, 2)
	assert.Equal(t, "ankle flexion", all[0].Exercise)
	assert.Equal(t, 0, all[0].Score)
}

func TestVasLog_RecordValidation(t *testing.T) {
	l := NewVasLog()

	_, err := l.Record(RegionKnee, PhaseBefore, 11, "", "")
	assert.True(t, errors.Is(err, ErrVasOutOfRange))
	_, err = l.Record(RegionKnee, PhaseBefore, -0.5, "", "")
	assert.True(t, errors.Is(err, ErrVasOutOfRange))
	_, err = l.Record("elbow", PhaseBefore, 3, "", "")
	assert.True(t, errors.Is(err, ErrUnknownRegion))
	_, err = l.Record(RegionKnee, "during", 3, "", "")
	assert.True(t, errors.Is(err, ErrUnknownPhase))

	assert.Empty(t, l.Records())
}

func TestVasLog_Summarize(t *testing.T) {
	l := NewVasLog()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	l.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	mustRecord := func(r Region, p Phase, v float64, patient string) {
		_, err := l.Record(r, p, v, patient, "knee flexion")
		require.NoError(t, err)
	}
	mustRecord(RegionKnee, PhaseBefore, 7, "BN1")
	mustRecord(RegionKnee, PhaseBefore, 6, "BN1")
	mustRecord(RegionKnee, PhaseAfter, 4, "BN1")
	mustRecord(RegionKnee, PhaseAfter, 8, "BN2")
	mustRecord(RegionHip, PhaseBefore, 2, "BN1")

	sum := l.Summarize(RegionKnee, "BN1")
	require.NotNil(t, sum.Before)
	require.NotNil(t, sum.After)
	assert.Equal(t, 6.0, sum.Before.Value)
	assert.Equal(t, 4.0, sum.After.Value)
	require.NotNil(t, sum.Diff)
	assert.Equal(t, -2.0, *sum.Diff)
	assert.Equal(t, TrendDecreased, sum.Trend)

	// any patient: the BN2 after rating is the most recent
	sum = l.Summarize(RegionKnee, "")
	assert.Equal(t, 8.0, sum.After.Value)
	assert.Equal(t, TrendIncreased, sum.Trend)

	// only one side present: no diff, no trend
	sum = l.Summarize(RegionHip, "BN1")
	require.NotNil(t, sum.Before)
	assert.Nil(t, sum.After)
	assert.Nil(t, sum.Diff)
	assert.Empty(t, sum.Trend)

	sum = l.Summarize(RegionAnkle, "")
	assert.Nil(t, sum.Before)
	assert.Nil(t, sum.After)
}

func TestVasLog_Unchanged(t *testing.T) {
	l := NewVasLog()
	_, err := l.Record(RegionAnkle, PhaseBefore, 3, "", "")
	require.NoError(t, err)
	_, err = l.Record(RegionAnkle, PhaseAfter, 3, "", "")
	require.NoError(t, err)
	assert.Equal(t, TrendUnchanged, l.Summarize(RegionAnkle, "").Trend)
}

func TestVasLog_RecordNormalizesRegionAndPhase(t *testing.T) {
	l := NewVasLog()
	rec, err := l.Record(Region("HIP"), Phase(" Before"), 5, "BN1", "")
	require.NoError(t, err)
	assert.Equal(t, RegionHip, rec.Region)
	assert.Equal(t, PhaseBefore, rec.Phase)

	sum := l.Summarize(RegionHip, "BN1")
	require.NotNil(t, sum.Before)
	assert.Equal(t, 5.0, sum.Before.Value)
}

func TestParseRegionAndPhase(t *testing.T) {
	r, err := ParseRegion(" Knee ")
	require.NoError(t, err)
	assert.Equal(t, RegionKnee, r)

	p, err := ParsePhase("AFTER")
	require.NoError(t, err)
	assert.Equal(t, PhaseAfter, p)
}

package mp4meta

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/objtrack/pkg/mocks"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

func TestRead_FragmentedVideo(t *testing.T) {
	data, err := mocks.FragmentedMP4(1280, 720, 30000, 1001, 12)
	require.NoError(t, err)

	track, err := Read(bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 1280, track.Width)
	assert.Equal(t, 720, track.Height)
	assert.Equal(t, "avc1", track.Codec)
	assert.Equal(t, uint32(30000), track.Timescale)
	assert.Equal(t, 12, track.SampleCount)
	assert.Equal(t, uint64(12*1001), track.DurationTicks)
	assert.Equal(t, pipeline.NewRational(30000, 1001), track.FrameRate)
	assert.Equal(t, pipeline.NewRational(12*1001, 30000), track.Duration())
}

func TestRead_AudioOnly(t *testing.T) {
	data, err := mocks.AudioOnlyMP4()
	require.NoError(t, err)

	_, err = Read(bytes.NewReader(data))
	assert.ErrorIs(t, err, ports.ErrNoVideoTrack)
}

func TestRead_NotMP4(t *testing.T) {
	_, err := Read(bytes.NewReader([]byte("definitely not a movie")))
	assert.ErrorIs(t, err, ErrNotMP4)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.mp4"))
	assert.Error(t, err)
}

func TestSampleDurationsRate(t *testing.T) {
	var constant sampleDurations
	constant.add(10, 512)
	assert.Equal(t, pipeline.NewRational(12800, 512), constant.rate(12800))

	var variable sampleDurations
	variable.add(1, 1000)
	variable.add(1, 2000)
	variable.add(0, 9999)
	assert.Equal(t, 2, variable.count)
	assert.Equal(t, pipeline.NewRational(2*1000, 3000), variable.rate(1000))

	var empty sampleDurations
	assert.False(t, empty.rate(1000).Positive())
}

func TestTrackDuration_ZeroTimescale(t *testing.T) {
	assert.False(t, Track{DurationTicks: 10}.Duration().Positive())
}

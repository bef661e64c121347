// Package mp4meta reads video track metadata from ISO-BMFF containers
// (mp4 and mov), both progressive and fragmented.
package mp4meta

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/ports"
)

// ErrNotMP4 is returned for files without a movie box.
var ErrNotMP4 = errors.New("mp4meta: not an ISO-BMFF container")

// Track is what the container boxes say about the first video track.
type Track struct {
	Width, Height int
	Timescale     uint32
	SampleCount   int
	DurationTicks uint64
	FrameRate     pipeline.Rational
	Codec         string
}

// Duration returns the track duration in seconds.
func (c Track) Duration() pipeline.Rational {
	if c.Timescale == 0 {
		return pipeline.Rational{}
	}
	return pipeline.NewRational(int64(c.DurationTicks), int64(c.Timescale))
}

// ReadFile reads the first video track of the file at path.
func ReadFile(path string) (Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return Track{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read reads the first video track from a progressive or fragmented MP4.
// It returns ports.ErrNoVideoTrack when the movie has no video track.
func Read(r io.ReadSeeker) (Track, error) {
	f, err := mp4.DecodeFile(r)
	if err != nil {
		return Track{}, fmt.Errorf("%w: %v", ErrNotMP4, err)
	}

	moov := f.Moov
	if f.IsFragmented() && f.Init != nil && f.Init.Moov != nil {
		moov = f.Init.Moov
	}
	if moov == nil {
		return Track{}, ErrNotMP4
	}

	var trak *mp4.TrakBox
	for _, t := range moov.Traks {
		if t.Mdia != nil && t.Mdia.Hdlr != nil && t.Mdia.Hdlr.HandlerType == "vide" {
			trak = t
			break
		}
	}
	if trak == nil {
		return Track{}, ports.ErrNoVideoTrack
	}

	info := Track{
		Width:  int(trak.Tkhd.Width >> 16),
		Height: int(trak.Tkhd.Height >> 16),
	}
	if trak.Mdia.Mdhd != nil {
		info.Timescale = trak.Mdia.Mdhd.Timescale
		info.DurationTicks = trak.Mdia.Mdhd.Duration
	}

	var stbl *mp4.StblBox
	if trak.Mdia.Minf != nil {
		stbl = trak.Mdia.Minf.Stbl
	}
	if stbl != nil && stbl.Stsd != nil {
		for _, child := range stbl.Stsd.Children {
			if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
				info.Codec = vse.Type()
				if vse.Width > 0 && vse.Height > 0 {
					info.Width, info.Height = int(vse.Width), int(vse.Height)
				}
				break
			}
		}
	}

	var durs sampleDurations
	if f.IsFragmented() || len(f.Segments) > 0 {
		durs, err = fragmentDurations(f, moov, trak.Tkhd.TrackID)
		if err != nil {
			return Track{}, err
		}
	} else if stbl != nil && stbl.Stts != nil {
		for i, count := range stbl.Stts.SampleCount {
			durs.add(int(count), stbl.Stts.SampleTimeDelta[i])
		}
	}

	info.SampleCount = durs.count
	if stbl != nil && stbl.Stsz != nil && int(stbl.Stsz.SampleNumber) > info.SampleCount {
		info.SampleCount = int(stbl.Stsz.SampleNumber)
	}
	if info.DurationTicks == 0 {
		info.DurationTicks = durs.total
	}
	info.FrameRate = durs.rate(info.Timescale)

	return info, nil
}

func fragmentDurations(f *mp4.File, moov *mp4.MoovBox, trackID uint32) (sampleDurations, error) {
	var trex *mp4.TrexBox
	if moov.Mvex != nil {
		for _, t := range moov.Mvex.Trexs {
			if t.TrackID == trackID {
				trex = t
				break
			}
		}
	}

	var durs sampleDurations
	for _, seg := range f.Segments {
		for _, frag := range seg.Fragments {
			if frag.Moof == nil || !hasTrack(frag.Moof, trackID) {
				continue
			}
			samples, err := frag.GetFullSamples(trex)
			if err != nil {
				return durs, fmt.Errorf("get samples: %w", err)
			}
			for _, s := range samples {
				durs.add(1, s.Dur)
			}
		}
	}
	return durs, nil
}

func hasTrack(moof *mp4.MoofBox, trackID uint32) bool {
	for _, traf := range moof.Trafs {
		if traf.Tfhd.TrackID == trackID {
			return true
		}
	}
	return false
}

// sampleDurations accumulates sample durations in timescale ticks.
type sampleDurations struct {
	count   int
	total   uint64
	delta   uint32
	uniform bool
}

func (d *sampleDurations) add(count int, delta uint32) {
	if count <= 0 {
		return
	}
	if d.count == 0 {
		d.delta, d.uniform = delta, true
	} else if delta != d.delta {
		d.uniform = false
	}
	d.count += count
	d.total += uint64(count) * uint64(delta)
}

// rate returns timescale/delta for constant frame rate tracks and the
// average rate otherwise.
func (d *sampleDurations) rate(timescale uint32) pipeline.Rational {
	switch {
	case d.count == 0 || timescale == 0:
		return pipeline.Rational{}
	case d.uniform && d.delta > 0:
		return pipeline.NewRational(int64(timescale), int64(d.delta))
	case d.total > 0:
		return pipeline.NewRational(int64(d.count)*int64(timescale), int64(d.total))
	}
	return pipeline.Rational{}
}

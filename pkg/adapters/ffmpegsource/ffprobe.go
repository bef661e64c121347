package ffmpegsource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/user/objtrack/pkg/pipeline"
)

// probeOutput is the subset of `ffprobe -of json -show_streams -show_format`
// that the source reads.
type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	CodecTag     string            `json:"codec_tag_string"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	RFrameRate   string            `json:"r_frame_rate"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	Duration     string            `json:"duration"`
	NbFrames     string            `json:"nb_frames"`
	Tags         map[string]string `json:"tags"`
	SideDataList []struct {
		SideDataType  string  `json:"side_data_type"`
		DisplayMatrix string  `json:"displaymatrix"`
		Rotation      float64 `json:"rotation"`
	} `json:"side_data_list"`
}

// probeArgs returns the ffprobe arguments describing the first video stream.
func probeArgs(path string) []string {
	return []string{
		"-hide_banner",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_streams",
		"-show_format",
		"-of", "json",
		path,
	}
}

func parseProbeOutput(data []byte) (probeOutput, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse ffprobe output: %w", err)
	}
	return out, nil
}

// videoStream returns the first video stream, if any.
func (p probeOutput) videoStream() (probeStream, bool) {
	for _, s := range p.Streams {
		if s.CodecType == "" || s.CodecType == "video" {
			return s, true
		}
	}
	return probeStream{}, false
}

// frameRate prefers the average rate, which matches the sample timing of
// variable rate tracks.
func (s probeStream) frameRate() pipeline.Rational {
	for _, v := range []string{s.AvgFrameRate, s.RFrameRate} {
		if r, err := pipeline.ParseRational(v); err == nil && r.Positive() {
			return r
		}
	}
	return pipeline.Rational{}
}

func (s probeStream) duration(formatDuration string) pipeline.Rational {
	for _, v := range []string{s.Duration, formatDuration} {
		if r, err := pipeline.ParseRational(v); err == nil && r.Positive() {
			return r
		}
	}
	return pipeline.Rational{}
}

// transform returns the preferred transform from the display matrix side
// data, or from the legacy rotate tag.
func (s probeStream) transform() (pipeline.Transform, bool) {
	for _, sd := range s.SideDataList {
		if sd.DisplayMatrix == "" {
			continue
		}
		if t, err := parseDisplayMatrix(sd.DisplayMatrix); err == nil {
			return t, true
		}
	}
	if v, ok := s.Tags["rotate"]; ok {
		if deg, err := strconv.ParseFloat(v, 64); err == nil {
			return pipeline.RotationTransform(deg), true
		}
	}
	return pipeline.IdentityTransform, false
}

// parseDisplayMatrix parses ffprobe's display matrix dump:
//
//	00000000:            0       65536           0
//	00000001:       -65536           0           0
//	00000002:            0           0  1073741824
//
// The rows are [a b u], [c d v], [tx ty w] with a-d, tx and ty in 16.16 fixed point.
func parseDisplayMatrix(s string) (pipeline.Transform, error) {
	var m []int64
	for _, line := range strings.Split(s, "\n") {
		if _, rest, ok := strings.Cut(line, ":"); ok {
			line = rest
		}
		for _, field := range strings.Fields(line) {
			v, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return pipeline.Transform{}, fmt.Errorf("display matrix: %w", err)
			}
			m = append(m, v)
		}
	}
	if len(m) != 9 {
		return pipeline.Transform{}, fmt.Errorf("display matrix: %d values, want 9", len(m))
	}

	const one = 1 << 16
	return pipeline.Transform{
		A: float64(m[0]) / one, B: float64(m[1]) / one,
		C: float64(m[3]) / one, D: float64(m[4]) / one,
		Tx: float64(m[6]) / one, Ty: float64(m[7]) / one,
	}, nil
}

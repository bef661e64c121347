package ffmpegsink

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/user/objtrack/pkg/pipeline"
	"github.com/user/objtrack/pkg/pixbuf"
)

// Setting keys recognized in ports.SinkOptions.Settings.
const (
	SettingCodec       = "codec"
	SettingPreset      = "preset"
	SettingBitrate     = "bitrate"
	SettingCRF         = "crf"
	SettingPixelFormat = "pixel_format"
)

// PresetPassthrough keeps the input frame size.
const PresetPassthrough = "passthrough"

var bitratePattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[kKmM]?$`)

// encoderSettings is the validated form of the settings map.
type encoderSettings struct {
	Encoder     string
	Tag         string
	Width       int
	Height      int
	Bitrate     string
	CRF         int
	PixelFormat string
}

// codecs maps codec names to ffmpeg encoders and sample entry tags.
var codecs = map[string]struct{ encoder, tag string }{
	"h264":   {"libx264", "avc1"},
	"avc1":   {"libx264", "avc1"},
	"hevc":   {"libx265", "hvc1"},
	"h265":   {"libx265", "hvc1"},
	"hvc1":   {"libx265", "hvc1"},
	"prores": {"prores_ks", ""},
}

// parseSettings validates the settings map. Unknown keys are returned so the
// caller can report them.
func parseSettings(m map[string]string) (encoderSettings, []string, error) {
	s := encoderSettings{
		Encoder:     "libx264",
		Tag:         "avc1",
		CRF:         -1,
		PixelFormat: "yuv420p",
	}

	var unknown []string
	for key, value := range m {
		value = strings.TrimSpace(value)
		switch key {
		case SettingCodec:
			if c, ok := codecs[strings.ToLower(value)]; ok {
				s.Encoder, s.Tag = c.encoder, c.tag
			} else if value != "" {
				s.Encoder, s.Tag = value, ""
			}
		case SettingPreset:
			w, h, err := ParsePreset(value)
			if err != nil {
				return s, nil, err
			}
			s.Width, s.Height = w, h
		case SettingBitrate:
			if !bitratePattern.MatchString(value) {
				return s, nil, fmt.Errorf("%w: bitrate %q", ErrInvalidSetting, value)
			}
			s.Bitrate = value
		case SettingCRF:
			crf, err := strconv.Atoi(value)
			if err != nil || crf < 0 || crf > 51 {
				return s, nil, fmt.Errorf("%w: crf %q must be 0-51", ErrInvalidSetting, value)
			}
			s.CRF = crf
		case SettingPixelFormat:
			if value == "" {
				return s, nil, fmt.Errorf("%w: empty pixel_format", ErrInvalidSetting)
			}
			s.PixelFormat = value
		default:
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return s, unknown, nil
}

// ParsePreset parses "WIDTHxHEIGHT" or "passthrough". Passthrough returns
// zero dimensions.
func ParsePreset(s string) (width, height int, err error) {
	if s == "" || strings.EqualFold(s, PresetPassthrough) {
		return 0, 0, nil
	}
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: preset %q", ErrInvalidSetting, s)
	}
	width, werr := strconv.Atoi(ws)
	height, herr := strconv.Atoi(hs)
	if werr != nil || herr != nil || width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%w: preset %q", ErrInvalidSetting, s)
	}
	return width, height, nil
}

// containerArgs returns the muxer arguments for a container tag.
func containerArgs(container string) ([]string, error) {
	switch strings.ToLower(container) {
	case "", "mp4":
		return []string{"-f", "mp4", "-movflags", "+faststart"}, nil
	case "mov":
		return []string{"-f", "mov", "-movflags", "+faststart"}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedContainer, container)
}

// inputPixelFormats maps buffer formats to ffmpeg rawvideo pixel formats.
var inputPixelFormats = map[pixbuf.Format]string{
	pixbuf.FormatNV12: "nv12",
	pixbuf.FormatI420: "yuv420p",
	pixbuf.FormatBGRA: "bgra",
	pixbuf.FormatRGBA: "rgba",
}

// scaleFilter fits frames inside the preset size, letterboxing the rest.
// Both output dimensions are kept even for 4:2:0 encoders.
func (s encoderSettings) scaleFilter() string {
	if s.Width == 0 || s.Height == 0 {
		return "scale=trunc(iw/2)*2:trunc(ih/2)*2"
	}
	w, h := s.Width&^1, s.Height&^1
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h, w, h)
}

// encodeArgs builds the ffmpeg command line for raw frames on stdin.
func encodeArgs(width, height int, format pixbuf.Format, rate pipeline.Rational, s encoderSettings, container, path string) ([]string, error) {
	pixFmt, ok := inputPixelFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: input format %v", ErrInvalidSetting, format)
	}
	muxer, err := containerArgs(container)
	if err != nil {
		return nil, err
	}

	args := []string{
		"-hide_banner", "-v", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-s", fmt.Sprintf("%dx%d", width, height),
		"-framerate", fmt.Sprintf("%d/%d", rate.Num, rate.Den),
		"-i", "pipe:0",
		"-vf", s.scaleFilter(),
		"-c:v", s.Encoder,
		"-pix_fmt", s.PixelFormat,
	}
	if s.CRF >= 0 {
		args = append(args, "-crf", strconv.Itoa(s.CRF))
	}
	if s.Bitrate != "" {
		args = append(args, "-b:v", s.Bitrate)
	}
	if s.Tag != "" {
		args = append(args, "-tag:v", s.Tag)
	}
	args = append(args, muxer...)
	return append(args, path), nil
}

package filesink

import (
	"image"
	"path/filepath"
	"testing"

	"github.com/user/objtrack/pkg/mocks"
	"github.com/user/objtrack/pkg/ports"
)

var testBaseDir = filepath.Join("debug")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, 0, mocks.NewFileSystem(), &mocks.Renderer{})
	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveAnnotatedFrame_Thumbnail(t *testing.T) {
	fs := mocks.NewFileSystem()
	var resized [2]int
	renderer := &mocks.Renderer{
		ResizeImageFunc: func(img image.Image, width, height int) image.Image {
			resized = [2]int{width, height}
			return image.NewRGBA(image.Rect(0, 0, width, height))
		},
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			if format != ports.FormatPNG {
				t.Errorf("expected PNG, got %v", format)
			}
			return []byte("png"), nil
		},
	}
	sink := New(testBaseDir, 480, fs, renderer)

	if err := sink.SaveAnnotatedFrame(7, image.NewRGBA(image.Rect(0, 0, 1920, 1080))); err != nil {
		t.Fatalf("SaveAnnotatedFrame failed: %v", err)
	}

	if resized != [2]int{480, 270} {
		t.Errorf("expected resize to 480x270, got %v", resized)
	}
	path := filepath.Join(testBaseDir, "frames", "frame-0007.png")
	if data, ok := fs.GetFile(path); !ok || string(data) != "png" {
		t.Errorf("expected frame at %s", path)
	}
}

func TestSink_SaveAnnotatedFrame_SmallFrameNotResized(t *testing.T) {
	renderer := &mocks.Renderer{
		ResizeImageFunc: func(img image.Image, width, height int) image.Image {
			t.Error("small frames must not be resized")
			return img
		},
	}
	sink := New(testBaseDir, 480, mocks.NewFileSystem(), renderer)
	if err := sink.SaveAnnotatedFrame(0, image.NewRGBA(image.Rect(0, 0, 320, 240))); err != nil {
		t.Fatalf("SaveAnnotatedFrame failed: %v", err)
	}
}

func TestSink_SaveObservationAppends(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, 0, fs, &mocks.Renderer{})

	sink.SaveObservation([]byte("{\"index\":0}\n"))
	sink.SaveObservation([]byte("{\"index\":1}\n"))

	data, _ := fs.GetFile(filepath.Join(testBaseDir, "observations.jsonl"))
	if string(data) != "{\"index\":0}\n{\"index\":1}\n" {
		t.Errorf("unexpected observations %q", data)
	}
}

func TestSink_SaveRunJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, 0, fs, &mocks.Renderer{})

	if err := sink.SaveRunJSON([]byte(`{"terminal":"EOF"}`)); err != nil {
		t.Fatalf("SaveRunJSON failed: %v", err)
	}
	if _, ok := fs.GetFile(filepath.Join(testBaseDir, "run.json")); !ok {
		t.Error("expected run.json")
	}
}

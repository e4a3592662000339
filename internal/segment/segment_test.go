package segment_test

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/segment"
	"storyreel/internal/services"
)

func TestDurationFloor(t *testing.T) {
	cases := []struct {
		seg  segment.Segment
		want float64
	}{
		{segment.Segment{Start: 1, End: 3.5}, 2.5},
		{segment.Segment{Start: 2, End: 2.05}, 0.1},
		{segment.Segment{Start: 5, End: 4}, 0.1},
	}
	for _, tc := range cases {
		if got := tc.seg.Duration(); got != tc.want {
			t.Fatalf("Duration(%v) = %v, want %v", tc.seg, got, tc.want)
		}
	}
}

func TestClampMinimum(t *testing.T) {
	s := segment.Segment{Index: 4, Start: 10, End: 10.05, Text: "hi"}
	got := s.ClampMinimum(0.12)
	if got.End != 10.12 || got.Start != 10 || got.Index != 4 || got.Text != "hi" {
		t.Fatalf("unexpected clamp result %+v", got)
	}
	if s.End != 10.05 {
		t.Fatal("ClampMinimum must not mutate the receiver")
	}
	long := segment.Segment{Start: 0, End: 3}
	if long.ClampMinimum(0.12) != long {
		t.Fatal("long segment should be unchanged")
	}
	if s.ClampMinimum(0) != s {
		t.Fatal("zero minimum should be a no-op")
	}
}

const sampleVTT = `WEBVTT

00:00:00.000 --> 00:00:02.500
Hello <b>world</b>

intro
00:00:02.500 --> 00:00:04.000
   

00:01:04.250 --> 00:01:06.000
Second   line
continues here
`

func TestParseVTT(t *testing.T) {
	segs, err := segment.Parse(strings.NewReader(sampleVTT))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "Hello world" || segs[0].Index != 0 || segs[0].End != 2.5 {
		t.Fatalf("unexpected first segment %+v", segs[0])
	}
	// The empty cue keeps its ordinal, so the third cue is index 2.
	if segs[1].Index != 2 {
		t.Fatalf("expected index 2, got %d", segs[1].Index)
	}
	if segs[1].Start != 64.25 || segs[1].Text != "Second line continues here" {
		t.Fatalf("unexpected second segment %+v", segs[1])
	}
}

func TestParseSRT(t *testing.T) {
	srt := "1\n00:00:01,000 --> 00:00:03,200\n<i>First</i>\n\n2\n00:00:03,200 --> 00:00:05,000\nSecond\n"
	segs, err := segment.Parse(strings.NewReader(srt))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segs))
	}
	if segs[0].Start != 1 || segs[0].End != 3.2 || segs[0].Text != "First" {
		t.Fatalf("unexpected segment %+v", segs[0])
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := segment.Load(path)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWriteVTTRoundTrip(t *testing.T) {
	in := []segment.Segment{
		{Index: 0, Start: 0, End: 1.5, Text: "one"},
		{Index: 1, Start: 3661.004, End: 3662, Text: "two"},
	}
	var buf bytes.Buffer
	if err := segment.WriteVTT(&buf, in); err != nil {
		t.Fatalf("WriteVTT: %v", err)
	}
	if !strings.Contains(buf.String(), "01:01:01.004 --> 01:01:02.000") {
		t.Fatalf("unexpected timestamp rendering:\n%s", buf.String())
	}

	path := filepath.Join(t.TempDir(), "sub", "out.vtt")
	if err := segment.WriteVTTFile(path, in); err != nil {
		t.Fatalf("WriteVTTFile: %v", err)
	}
	out, err := segment.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 2 || out[1].Text != "two" || math.Abs(out[1].Start-3661.004) > 1e-9 {
		t.Fatalf("unexpected reload %+v", out)
	}
}

func TestParseTimestampForms(t *testing.T) {
	for in, want := range map[string]float64{
		"00:00:01.500": 1.5,
		"01:02.250":    62.25,
		"00:00:02,100": 2.1,
	} {
		got, err := segment.ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := segment.ParseTimestamp("bad"); err == nil {
		t.Fatal("expected error")
	}
}

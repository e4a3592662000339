package segment

import "fmt"

// MinDuration is the floor applied by Duration.
const MinDuration = 0.1

// Segment is one timed caption cue.
type Segment struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Duration returns End-Start, never less than MinDuration.
func (s Segment) Duration() float64 {
	return max(MinDuration, s.End-s.Start)
}

// ClampMinimum returns a copy whose end is pushed out to Start+minimum when the
// cue is shorter than minimum. A non-positive minimum leaves the segment as is.
func (s Segment) ClampMinimum(minimum float64) Segment {
	if minimum > 0 && s.End-s.Start < minimum {
		s.End = s.Start + minimum
	}
	return s
}

func (s Segment) String() string {
	return fmt.Sprintf("#%d %s-%s", s.Index, FormatTimestamp(s.Start), FormatTimestamp(s.End))
}

// ClampAll applies ClampMinimum to every segment.
func ClampAll(segments []Segment, minimum float64) []Segment {
	out := make([]Segment, len(segments))
	for i, s := range segments {
		out[i] = s.ClampMinimum(minimum)
	}
	return out
}

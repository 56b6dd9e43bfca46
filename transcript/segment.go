package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/kbukum/scribe/engine"
)

// FallbackSpeaker names segments whose speaker label is missing or has no
// numeric suffix.
const FallbackSpeaker = "Unknown speaker"

// DefaultMaxPause is the largest gap, in seconds, bridged by a merge.
const DefaultMaxPause = 2.0

var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Segment is a speaker turn in the final transcript.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
	Text    string  `json:"text"`
}

// SegmentFormatError reports a raw segment whose bounds are not numbers.
type SegmentFormatError struct {
	Index int
	Field string
	Value any
}

func (e *SegmentFormatError) Error() string {
	return fmt.Sprintf("segment %d: %s value %#v is not a number", e.Index, e.Field, e.Value)
}

// ResolveSpeaker maps an engine label to a display name: the trailing number
// plus one, so "SPEAKER_00" is "Speaker 1".
func ResolveSpeaker(label string) string {
	m := trailingDigits.FindString(strings.TrimSpace(label))
	if m == "" {
		return FallbackSpeaker
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return FallbackSpeaker
	}
	return fmt.Sprintf("Speaker %d", n+1)
}

// Normalize coerces raw segments into Segments in emission order. Text is
// trimmed. When diarized, labels are resolved and missing ones get
// FallbackSpeaker; otherwise a label is resolved only if the engine sent one.
func Normalize(raw []engine.RawSegment, diarized bool) ([]Segment, error) {
	out := make([]Segment, 0, len(raw))
	for i, r := range raw {
		start, err := toSeconds(r.Start)
		if err != nil {
			return nil, &SegmentFormatError{Index: i, Field: "start", Value: r.Start}
		}
		end, err := toSeconds(r.End)
		if err != nil {
			return nil, &SegmentFormatError{Index: i, Field: "end", Value: r.End}
		}

		speaker := ""
		if diarized || r.Speaker != "" {
			speaker = ResolveSpeaker(r.Speaker)
		}
		out = append(out, Segment{Start: start, End: end, Speaker: speaker, Text: strings.TrimSpace(r.Text)})
	}
	return out, nil
}

// Merge walks segments in order and joins each into the current turn when it
// has the same speaker and starts at most maxPause seconds after the turn
// ends. The result is stably sorted by start. Merging its own output is a
// no-op when that output is already time-ordered.
func Merge(segments []Segment, maxPause float64) []Segment {
	merged := make([]Segment, 0, len(segments))
	var cur *Segment
	for _, seg := range segments {
		if cur != nil && cur.Speaker == seg.Speaker && seg.Start-cur.End <= maxPause {
			cur.End = seg.End
			cur.Text += " " + seg.Text
			continue
		}
		if cur != nil {
			merged = append(merged, *cur)
		}
		s := seg
		cur = &s
	}
	if cur != nil {
		merged = append(merged, *cur)
	}
	sortByStart(merged)
	return merged
}

// toSeconds accepts numbers, json.Number and numeric strings. A missing
// value is an error, not zero; booleans and other kinds are rejected before
// cast would coerce them.
func toSeconds(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing value")
	case string:
		v = strings.TrimSpace(x)
	case json.Number:
		v = x.String()
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
	default:
		return 0, fmt.Errorf("not a number (%T)", v)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

func sortByStart(segments []Segment) {
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].Start < segments[j].Start })
}

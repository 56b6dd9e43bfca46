package engine

import "github.com/spf13/cast"

// speakerTurn is a diarization interval attributed to one speaker.
type speakerTurn struct {
	Speaker    string
	Start, End float64
}

// assignSpeakers labels each segment with the speaker whose turn overlaps it
// the most. Segments without any overlap, or with bounds that are not
// numbers, keep their existing label.
func assignSpeakers(segments []RawSegment, turns []speakerTurn) []RawSegment {
	out := make([]RawSegment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		start, err1 := cast.ToFloat64E(seg.Start)
		end, err2 := cast.ToFloat64E(seg.End)
		if err1 != nil || err2 != nil {
			continue
		}

		best, bestOverlap := "", 0.0
		for _, t := range turns {
			overlap := min(end, t.End) - max(start, t.Start)
			if overlap > bestOverlap {
				best, bestOverlap = t.Speaker, overlap
			}
		}
		if best != "" {
			out[i].Speaker = best
		}
	}
	return out
}

package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kbukum/scribe/engine"
)

// StatusSuccess is the status field of every written document.
const StatusSuccess = "success"

// Document is the JSON artifact of a finished task.
type Document struct {
	Status         string    `json:"status"`
	Text           string    `json:"text"`
	Segments       []Segment `json:"segments"`
	ProcessingTime float64   `json:"processing_time"`
}

// Assembler builds Documents from raw engine output.
type Assembler struct {
	maxPause float64
}

// NewAssembler returns an Assembler that merges across gaps up to maxPause
// seconds. A non-positive value selects DefaultMaxPause.
func NewAssembler(maxPause float64) *Assembler {
	if maxPause <= 0 {
		maxPause = DefaultMaxPause
	}
	return &Assembler{maxPause: maxPause}
}

// Assemble normalizes raw segments, merges speaker turns when diarized and
// returns the document. Non-diarized segments are kept one to one, ordered
// by start. Any malformed segment fails the whole document with a
// *SegmentFormatError.
func (a *Assembler) Assemble(raw []engine.RawSegment, diarized bool, processingTime time.Duration) (*Document, error) {
	segments, err := Normalize(raw, diarized)
	if err != nil {
		return nil, err
	}
	if diarized {
		segments = Merge(segments, a.maxPause)
	} else {
		sortByStart(segments)
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	return &Document{
		Status:         StatusSuccess,
		Text:           strings.Join(texts, " "),
		Segments:       segments,
		ProcessingTime: math.Round(processingTime.Seconds()*100) / 100,
	}, nil
}

// RenderJSON encodes doc as indented UTF-8 JSON without HTML escaping, so
// non-Latin text stays readable in the file.
func RenderJSON(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("transcript: encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderText writes one "MM:SS - text" line per segment. Consecutive lines of
// a speaker sit under a "<speaker>:" header and speaker groups are separated
// by a blank line. Segments without a speaker get no header.
func RenderText(doc *Document) []byte {
	var b strings.Builder
	last, first := "", true
	for _, seg := range doc.Segments {
		if first || seg.Speaker != last {
			if !first {
				b.WriteByte('\n')
			}
			if seg.Speaker != "" {
				b.WriteString(seg.Speaker)
				b.WriteString(":\n")
			}
			last, first = seg.Speaker, false
		}
		b.WriteString(Timestamp(seg.Start))
		b.WriteString(" - ")
		b.WriteString(seg.Text)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Timestamp formats seconds as zero-padded MM:SS, truncating fractions.
func Timestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	minutes := int64(math.Floor(seconds / 60))
	sec := int64(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", minutes, sec)
}

package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/scribe/engine"
	"github.com/kbukum/scribe/storage"
)

func TestResolveSpeaker(t *testing.T) {
	tests := []struct {
		label, want string
	}{
		{"SPEAKER_00", "Speaker 1"},
		{"SPEAKER_01", "Speaker 2"},
		{"spk12", "Speaker 13"},
		{"", FallbackSpeaker},
		{"narrator", FallbackSpeaker},
	}
	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			if got := ResolveSpeaker(tc.label); got != tc.want {
				t.Errorf("ResolveSpeaker(%q) = %q, want %q", tc.label, got, tc.want)
			}
		})
	}
}

func TestMerge_PauseThreshold(t *testing.T) {
	tests := []struct {
		name      string
		nextStart float64
		wantLen   int
	}{
		{"gap 1.5 merges", 11.5, 1},
		{"gap exactly max merges", 12.0, 1},
		{"gap 3.0 splits", 13.0, 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := []engine.RawSegment{
				{Start: 5.0, End: 10.0, Text: "hello", Speaker: "SPEAKER_00"},
				{Start: tc.nextStart, End: 15.0, Text: "world", Speaker: "SPEAKER_00"},
			}
			doc, err := NewAssembler(DefaultMaxPause).Assemble(raw, true, 0)
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if len(doc.Segments) != tc.wantLen {
				t.Fatalf("segments = %d, want %d", len(doc.Segments), tc.wantLen)
			}
			if tc.wantLen == 1 {
				got := doc.Segments[0]
				if got.Start != 5.0 || got.End != 15.0 || got.Text != "hello world" || got.Speaker != "Speaker 1" {
					t.Errorf("merged = %+v", got)
				}
			}
		})
	}
}

func TestMerge_DifferentSpeakersNeverMerge(t *testing.T) {
	segs := []Segment{
		{Start: 0, End: 1, Speaker: "Speaker 1", Text: "a"},
		{Start: 1, End: 2, Speaker: "Speaker 2", Text: "b"},
		{Start: 2, End: 3, Speaker: "Speaker 1", Text: "c"},
	}
	if got := Merge(segs, DefaultMaxPause); len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestMerge_Idempotent(t *testing.T) {
	raw := []Segment{
		{Start: 0, End: 2, Speaker: "Speaker 1", Text: "one"},
		{Start: 2.5, End: 4, Speaker: "Speaker 1", Text: "two"},
		{Start: 4.2, End: 6, Speaker: "Speaker 2", Text: "three"},
		{Start: 9, End: 10, Speaker: "Speaker 2", Text: "four"},
		{Start: 10.5, End: 11, Speaker: "Speaker 1", Text: "five"},
	}
	once := Merge(raw, DefaultMaxPause)
	twice := Merge(once, DefaultMaxPause)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\n once  %+v\n twice %+v", once, twice)
	}
}

func TestAssemble_SortsAndRoundTrips(t *testing.T) {
	raw := []engine.RawSegment{
		{Start: 20.0, End: 22.0, Text: " later ", Speaker: "SPEAKER_01"},
		{Start: "0.5", End: "3", Text: "первый", Speaker: "SPEAKER_00"},
		{Start: 4, End: 6, Text: "second", Speaker: "SPEAKER_00"},
	}
	doc, err := NewAssembler(0).Assemble(raw, true, 1234*time.Millisecond)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Status != StatusSuccess {
		t.Errorf("status = %q", doc.Status)
	}
	if doc.ProcessingTime != 1.23 {
		t.Errorf("processing_time = %v, want 1.23", doc.ProcessingTime)
	}
	for i := 1; i < len(doc.Segments); i++ {
		if doc.Segments[i-1].Start > doc.Segments[i].Start {
			t.Fatalf("segments not time ordered: %+v", doc.Segments)
		}
	}

	texts := make([]string, len(doc.Segments))
	for i, s := range doc.Segments {
		texts[i] = s.Text
	}
	if strings.Join(texts, " ") != doc.Text {
		t.Errorf("full text %q does not match segments %q", doc.Text, texts)
	}
	if doc.Text != "первый second later" {
		t.Errorf("text = %q", doc.Text)
	}
}

func TestAssemble_NonDiarized(t *testing.T) {
	raw := []engine.RawSegment{
		{Start: 3.0, End: 4.0, Text: "b"},
		{Start: 1.0, End: 2.0, Text: "a"},
		{Start: 2.1, End: 2.9, Text: "labelled", Speaker: "SPEAKER_03"},
	}
	doc, err := NewAssembler(DefaultMaxPause).Assemble(raw, false, 0)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(doc.Segments) != 3 {
		t.Fatalf("segments = %d, want 3 (no merging)", len(doc.Segments))
	}
	if doc.Segments[0].Speaker != "" || doc.Segments[1].Speaker != "Speaker 4" {
		t.Errorf("speakers = %q, %q", doc.Segments[0].Speaker, doc.Segments[1].Speaker)
	}
}

func TestAssemble_SegmentFormatError(t *testing.T) {
	tests := []struct {
		name  string
		seg   engine.RawSegment
		field string
	}{
		{"start not numeric", engine.RawSegment{Start: "abc", End: 1.0}, "start"},
		{"end missing", engine.RawSegment{Start: 1.0, End: nil}, "end"},
		{"end is a map", engine.RawSegment{Start: 1.0, End: map[string]any{}}, "end"},
		{"start is a bool", engine.RawSegment{Start: true, End: 2.0}, "start"},
		{"end is a bool", engine.RawSegment{Start: 1.0, End: false}, "end"},
		{"start is a slice", engine.RawSegment{Start: []any{1.0}, End: 2.0}, "start"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			raw := []engine.RawSegment{{Start: 0.0, End: 1.0, Text: "ok"}, tc.seg}
			_, err := NewAssembler(0).Assemble(raw, true, 0)
			var sfe *SegmentFormatError
			if !errors.As(err, &sfe) {
				t.Fatalf("err = %v, want *SegmentFormatError", err)
			}
			if sfe.Index != 1 || sfe.Field != tc.field {
				t.Errorf("error = %+v", sfe)
			}
		})
	}
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.99, "00:59"},
		{61.5, "01:01"},
		{3600, "60:00"},
		{-3, "00:00"},
	}
	for _, tc := range tests {
		if got := Timestamp(tc.in); got != tc.want {
			t.Errorf("Timestamp(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRenderText(t *testing.T) {
	doc := &Document{Segments: []Segment{
		{Start: 0, End: 2, Speaker: "Speaker 1", Text: "hi"},
		{Start: 65, End: 66, Speaker: "Speaker 1", Text: "again"},
		{Start: 70, End: 71, Speaker: "Speaker 2", Text: "yo"},
	}}
	want := "Speaker 1:\n00:00 - hi\n01:05 - again\n\nSpeaker 2:\n01:10 - yo\n"
	if got := string(RenderText(doc)); got != want {
		t.Errorf("RenderText =\n%q\nwant\n%q", got, want)
	}

	plain := &Document{Segments: []Segment{{Start: 1, Text: "a"}, {Start: 2, Text: "b"}}}
	if got := string(RenderText(plain)); got != "00:01 - a\n00:02 - b\n" {
		t.Errorf("RenderText without speakers = %q", got)
	}
}

func TestRenderJSON_Unescaped(t *testing.T) {
	doc := &Document{Status: StatusSuccess, Text: "<привет> & co", Segments: []Segment{}}
	data, err := RenderJSON(doc)
	if err != nil {
		t.Fatalf("RenderJSON: %v", err)
	}
	if !strings.Contains(string(data), "<привет> & co") {
		t.Errorf("text escaped: %s", data)
	}
	if !strings.Contains(string(data), "\n  \"status\": \"success\"") {
		t.Errorf("expected two-space indent: %s", data)
	}
	var back Document
	if err := json.Unmarshal(data, &back); err != nil || back.Text != doc.Text {
		t.Errorf("decode = %+v, %v", back, err)
	}
}

func TestWriter_WritesBothArtifacts(t *testing.T) {
	st, err := storage.New(storage.Config{BasePath: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	dir := st.TaskDir("alice", "t-1")
	doc, err := NewAssembler(0).Assemble([]engine.RawSegment{{Start: 0, End: 1, Text: "hi", Speaker: "SPEAKER_00"}}, true, time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if err := NewWriter(st).Write(context.Background(), dir, "t-1", doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	for _, ext := range []string{ExtJSON, ExtText} {
		if _, err := os.Stat(filepath.Join(dir, "t-1."+ext)); err != nil {
			t.Errorf("missing %s artifact: %v", ext, err)
		}
	}
}

type failingFiles struct{ calls int }

func (f *failingFiles) WriteFile(context.Context, string, string, []byte) error {
	f.calls++
	return errors.New("disk full")
}

func TestWriter_PropagatesStorageError(t *testing.T) {
	files := &failingFiles{}
	err := NewWriter(files).Write(context.Background(), "/x", "t", &Document{Status: StatusSuccess})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("err = %v", err)
	}
	if files.calls != 1 {
		t.Errorf("calls = %d, want 1 (stop at first failure)", files.calls)
	}
}

func TestNormalize_NumericKinds(t *testing.T) {
	raw := []engine.RawSegment{
		{Start: json.Number("1.5"), End: " 2.25 ", Text: "a"},
		{Start: 3, End: int64(4), Text: "b"},
		{Start: float32(5), End: uint(6), Text: "c"},
	}
	segs, err := Normalize(raw, false)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := [][2]float64{{1.5, 2.25}, {3, 4}, {5, 6}}
	for i, w := range want {
		if segs[i].Start != w[0] || segs[i].End != w[1] {
			t.Errorf("segment %d = [%v, %v], want %v", i, segs[i].Start, segs[i].End, w)
		}
	}
}

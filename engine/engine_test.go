package engine

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/scribe/logger"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, []byte("RIFF....WAVE"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssignSpeakers(t *testing.T) {
	turns := []speakerTurn{
		{Speaker: "SPEAKER_00", Start: 0, End: 5},
		{Speaker: "SPEAKER_01", Start: 5, End: 12},
	}
	tests := []struct {
		name string
		seg  RawSegment
		want string
	}{
		{"inside first turn", RawSegment{Start: 1.0, End: 4.0}, "SPEAKER_00"},
		{"mostly second turn", RawSegment{Start: 4.0, End: 9.0}, "SPEAKER_01"},
		{"numeric strings", RawSegment{Start: "6", End: "7.5"}, "SPEAKER_01"},
		{"no overlap", RawSegment{Start: 20.0, End: 21.0}, ""},
		{"unparseable keeps label", RawSegment{Start: "abc", End: 2.0, Speaker: "X"}, "X"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := assignSpeakers([]RawSegment{tc.seg}, turns)
			if got[0].Speaker != tc.want {
				t.Errorf("speaker = %q, want %q", got[0].Speaker, tc.want)
			}
		})
	}
}

func TestSidecar_TranscribeWithDiarization(t *testing.T) {
	var gotModel, gotFile string
	whisper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotFile = hdr.Filename + ":" + string(data)
		_, _ = io.WriteString(w, `{"text":"hi there","language":"en","segments":[
			{"start":0.0,"end":2.0,"text":" hi"},
			{"start":"6.0","end":"8.0","text":" there"}]}`)
	}))
	defer whisper.Close()

	pyannote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pyannoteResponse{
			NumSpeakers: 2,
			Segments: []pyannoteSegment{
				{SpeakerID: "SPEAKER_00", StartTime: 0, EndTime: 3},
				{SpeakerID: "SPEAKER_01", StartTime: 5, EndTime: 9},
			},
		})
	}))
	defer pyannote.Close()

	s := NewSidecar(SidecarConfig{URL: whisper.URL, Model: "tiny"}, SidecarConfig{URL: pyannote.URL}, "", logger.NewNop())
	segs, err := s.Transcribe(context.Background(), writeAudio(t), true)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotModel != "tiny" {
		t.Errorf("model = %q, want tiny", gotModel)
	}
	if gotFile != "call.wav:RIFF....WAVE" {
		t.Errorf("uploaded file = %q", gotFile)
	}
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if segs[0].Speaker != "SPEAKER_00" || segs[1].Speaker != "SPEAKER_01" {
		t.Errorf("speakers = %q, %q", segs[0].Speaker, segs[1].Speaker)
	}
	if segs[1].Start != "6.0" {
		t.Errorf("start passed through as %#v, want the raw string", segs[1].Start)
	}
}

func TestSidecar_WithoutDiarizationSkipsPyannote(t *testing.T) {
	whisper := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"segments":[{"start":1,"end":2,"text":"x"}]}`)
	}))
	defer whisper.Close()
	pyannote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("pyannote must not be called")
	}))
	defer pyannote.Close()

	s := NewSidecar(SidecarConfig{URL: whisper.URL}, SidecarConfig{URL: pyannote.URL}, "en", logger.NewNop())
	segs, err := s.Transcribe(context.Background(), writeAudio(t), false)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 1 || segs[0].Speaker != "" {
		t.Errorf("segments = %+v", segs)
	}
}

func TestSidecar_Errors(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer failing.Close()

	s := NewSidecar(SidecarConfig{URL: failing.URL}, SidecarConfig{URL: failing.URL}, "", logger.NewNop())
	_, err := s.Transcribe(context.Background(), writeAudio(t), false)
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Errorf("err = %v, want status body in error", err)
	}

	if _, err := s.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), false); err == nil {
		t.Error("expected error for missing file")
	}
	if err := s.Ping(context.Background()); err == nil {
		t.Error("expected Ping error for 500")
	}
}

func TestOpenAI_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"task":"transcribe","language":"english","duration":4.2,"text":"a b",
			"segments":[{"id":0,"start":0.0,"end":1.5,"text":" a"},{"id":1,"start":1.5,"end":4.2,"text":" b"}]}`)
	}))
	defer srv.Close()

	o := NewOpenAI(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, "", logger.NewNop())
	segs, err := o.Transcribe(context.Background(), writeAudio(t), true)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("segments = %d, want 2", len(segs))
	}
	if segs[1].End != 4.2 || segs[1].Text != " b" {
		t.Errorf("segment = %+v", segs[1])
	}
}

func TestNew(t *testing.T) {
	e, err := New(Config{}, logger.NewNop())
	if err != nil {
		t.Fatalf("New default: %v", err)
	}
	if e.Name() != ProviderSidecar {
		t.Errorf("default engine = %q", e.Name())
	}
	if _, err := New(Config{Provider: ProviderOpenAI}, logger.NewNop()); err == nil {
		t.Error("expected error without api key")
	}
	if _, err := New(Config{Provider: "kaldi"}, logger.NewNop()); err == nil {
		t.Error("expected error for unknown provider")
	}
}

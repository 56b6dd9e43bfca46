package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kbukum/scribe/logger"
)

// Sidecar transcribes through a faster-whisper HTTP sidecar and diarizes
// through a pyannote HTTP sidecar.
type Sidecar struct {
	whisper  SidecarConfig
	pyannote SidecarConfig
	language string

	whisperClient  *http.Client
	pyannoteClient *http.Client
	log            *logger.Logger
}

var (
	_ Engine        = (*Sidecar)(nil)
	_ HealthChecker = (*Sidecar)(nil)
)

// NewSidecar creates a sidecar-backed engine.
func NewSidecar(whisper, pyannote SidecarConfig, language string, log *logger.Logger) *Sidecar {
	return &Sidecar{
		whisper:        whisper,
		pyannote:       pyannote,
		language:       language,
		whisperClient:  &http.Client{Timeout: parseTimeout(whisper.Timeout, 30*time.Minute)},
		pyannoteClient: &http.Client{Timeout: parseTimeout(pyannote.Timeout, 30*time.Minute)},
		log:            log.WithComponent("engine.sidecar"),
	}
}

// Name returns the engine name.
func (s *Sidecar) Name() string { return ProviderSidecar }

// Ping checks that the whisper sidecar answers its health endpoint.
func (s *Sidecar) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(s.whisper.URL, "/")+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.whisperClient.Do(req)
	if err != nil {
		return fmt.Errorf("whisper health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("whisper health: status %d", resp.StatusCode)
	}
	return nil
}

// Transcribe sends the file to whisper and, if diarize is set, to pyannote,
// then labels every segment with its dominant speaker.
func (s *Sidecar) Transcribe(ctx context.Context, audioPath string, diarize bool) ([]RawSegment, error) {
	fields := map[string]string{"model": s.whisper.Model}
	if s.language != "" {
		fields["language"] = s.language
	}

	var transcript whisperResponse
	if err := postAudio(ctx, s.whisperClient, s.whisper.URL+"/transcribe", audioPath, fields, &transcript); err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	s.log.Debug("Whisper returned segments", logger.Fields("segments", len(transcript.Segments), "language", transcript.Language))
	if !diarize {
		return transcript.Segments, nil
	}

	var turns pyannoteResponse
	if err := postAudio(ctx, s.pyannoteClient, s.pyannote.URL+"/diarize", audioPath, nil, &turns); err != nil {
		return nil, fmt.Errorf("pyannote: %w", err)
	}
	if turns.Error != "" {
		return nil, fmt.Errorf("pyannote: %s", turns.Error)
	}
	s.log.Debug("Pyannote returned speaker turns", logger.Fields("turns", len(turns.Segments), "speakers", turns.NumSpeakers))

	return assignSpeakers(transcript.Segments, turns.turns()), nil
}

// postAudio streams the file as the "audio" part of a multipart request and
// decodes a JSON response into out.
func postAudio(ctx context.Context, client *http.Client, url, audioPath string, fields map[string]string, out any) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeMultipart(mw, f, filepath.Base(audioPath), fields))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		_ = pr.Close()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func writeMultipart(mw *multipart.Writer, audio io.Reader, fileName string, fields map[string]string) error {
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	part, err := mw.CreateFormFile("audio", fileName)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return err
	}
	return mw.Close()
}

// --- sidecar wire types ---

type whisperResponse struct {
	Text     string       `json:"text"`
	Segments []RawSegment `json:"segments"`
	Language string       `json:"language"`
}

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func (r pyannoteResponse) turns() []speakerTurn {
	out := make([]speakerTurn, 0, len(r.Segments))
	for _, seg := range r.Segments {
		out = append(out, speakerTurn{Speaker: seg.SpeakerID, Start: seg.StartTime, End: seg.EndTime})
	}
	return out
}

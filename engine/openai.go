package engine

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/kbukum/scribe/logger"
)

// OpenAI transcribes through the OpenAI audio API. The API does not label
// speakers, so diarized requests come back without speaker labels.
type OpenAI struct {
	client   *openai.Client
	model    string
	language string
	log      *logger.Logger
}

var _ Engine = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI-backed engine.
func NewOpenAI(cfg OpenAIConfig, language string, log *logger.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		language: language,
		log:      log.WithComponent("engine.openai"),
	}
}

// Name returns the engine name.
func (o *OpenAI) Name() string { return ProviderOpenAI }

// Transcribe uploads the file and converts the verbose_json segments.
func (o *OpenAI) Transcribe(ctx context.Context, audioPath string, diarize bool) ([]RawSegment, error) {
	if diarize {
		o.log.Warn("Diarization requested but not supported by the OpenAI engine", logger.Fields("file", audioPath))
	}
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: audioPath,
		Language: o.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	segments := make([]RawSegment, 0, len(resp.Segments))
	for _, seg := range resp.Segments {
		segments = append(segments, RawSegment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return segments, nil
}

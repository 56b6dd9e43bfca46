package queue

import (
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
)

const contentTypeJSON = "application/json"

// Descriptor is the message published for every admitted task.
type Descriptor struct {
	TaskID          string  `json:"task_id"`
	AccountID       uint    `json:"account_id"`
	Username        string  `json:"username"`
	FilePath        string  `json:"file_path"`
	AudioDuration   float64 `json:"audio_duration"`
	WithDiarization bool    `json:"with_diarization"`
}

// toMessage encodes d keyed by its task id.
func (d Descriptor) toMessage() (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("queue: encode descriptor: %w", err)
	}
	return kafkago.Message{
		Key:     []byte(d.TaskID),
		Value:   data,
		Headers: []kafkago.Header{{Key: "content-type", Value: []byte(contentTypeJSON)}},
	}, nil
}

// decodeDescriptor parses a message value. A descriptor without task id is invalid.
func decodeDescriptor(msg kafkago.Message) (Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(msg.Value, &d); err != nil {
		return Descriptor{}, fmt.Errorf("queue: decode descriptor: %w", err)
	}
	if d.TaskID == "" {
		return Descriptor{}, fmt.Errorf("queue: descriptor without task_id")
	}
	return d, nil
}

package transcript

import (
	"context"
	"fmt"

	"github.com/kbukum/scribe/storage"
)

// Artifact extensions, also the accepted download types.
const (
	ExtJSON = "json"
	ExtText = "txt"
)

// FileWriter is the storage capability the Writer needs.
type FileWriter interface {
	WriteFile(ctx context.Context, dir, name string, data []byte) error
}

// Writer persists both renderings of a Document.
type Writer struct {
	files FileWriter
}

// NewWriter creates a Writer backed by files.
func NewWriter(files FileWriter) *Writer {
	return &Writer{files: files}
}

// Write renders the JSON and text documents and stores them as
// <taskID>.json and <taskID>.txt in dir. Nothing is written unless both
// renderings succeed. Existing artifacts are replaced.
func (w *Writer) Write(ctx context.Context, dir, taskID string, doc *Document) error {
	jsonDoc, err := RenderJSON(doc)
	if err != nil {
		return err
	}
	textDoc := RenderText(doc)

	if err := w.files.WriteFile(ctx, dir, storage.ArtifactName(taskID, ExtJSON), jsonDoc); err != nil {
		return fmt.Errorf("transcript: write json: %w", err)
	}
	if err := w.files.WriteFile(ctx, dir, storage.ArtifactName(taskID, ExtText), textDoc); err != nil {
		return fmt.Errorf("transcript: write text: %w", err)
	}
	return nil
}

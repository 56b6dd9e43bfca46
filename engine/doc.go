// Package engine defines the speech-to-text collaborator used by the worker
// and its implementations.
//
// An Engine turns an audio file into raw, possibly speaker-labelled segments.
// Segment bounds are passed through as the engine reported them; numeric
// coercion and validation happen in the transcript assembler.
//
// Two implementations are provided:
//
//   - Sidecar calls a faster-whisper HTTP sidecar and, when diarization is
//     requested, a pyannote sidecar, labelling each segment with the speaker
//     whose turn overlaps it most.
//   - OpenAI calls the OpenAI audio transcription API (verbose_json).
package engine

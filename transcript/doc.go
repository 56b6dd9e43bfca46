// Package transcript turns raw engine segments into the two task artifacts:
// a JSON document and a plain-text transcript grouped by speaker.
//
// Diarized input goes through speaker resolution ("SPEAKER_01" becomes
// "Speaker 2") and a merge pass that joins consecutive segments of the same
// speaker separated by at most the configured maximum pause. Output segments
// are ordered by start time.
package transcript

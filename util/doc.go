// Package util holds small helpers shared by the scribe packages: byte size
// parsing for upload limits, file name sanitization for the artifact layout,
// identifier checks and pointer helpers.
package util

// Package storage keeps uploaded audio and transcript artifacts on the local
// filesystem.
//
// Every task owns one directory:
//
//	<base_path>/<username>/<task_id>/<original file name>
//	<base_path>/<username>/<task_id>/<task_id>.json
//	<base_path>/<username>/<task_id>/<task_id>.txt
//
// Artifacts are written through a temporary file and renamed into place, so a
// reader never observes a partially written transcript.
package storage

// Package version carries build information for the scribe binaries.
//
//	go build -ldflags "-X github.com/kbukum/scribe/version.Version=1.2.0" ./cmd/scribe-api
package version

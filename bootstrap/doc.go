// Package bootstrap runs a scribe process: it starts the registered
// components, runs the configure callbacks that wire business services onto
// them, then blocks on a signal (Run) or a finite task (RunTask) and shuts
// down in reverse order.
package bootstrap

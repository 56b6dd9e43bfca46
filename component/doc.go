// Package component defines the lifecycle contract shared by the database,
// queue, cache and HTTP server, and a registry that starts them in order and
// stops them in reverse.
package component

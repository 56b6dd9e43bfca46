// Package middleware holds the gin middleware of the HTTP surface.
package middleware

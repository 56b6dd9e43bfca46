// Package redis wraps go-redis with service logging, lifecycle support and
// JSON helpers.
package redis

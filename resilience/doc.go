// Package resilience provides context-aware retry loops, both bounded with
// exponential backoff and unbounded with a fixed delay.
package resilience

// Package logger wraps zerolog with the service's field conventions.
//
// Loggers are passed explicitly to the components that use them:
//
//	log := logger.New(&cfg.Logging, "scribe-worker")
//	log.WithComponent("worker").WithTask(taskID).Info("task started")
package logger

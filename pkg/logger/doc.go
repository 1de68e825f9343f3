// Package logger provides a thin factory around log/slog plus typed
// attribute helpers for the engine's logging vocabulary.
//
// Basic usage:
//
//	log := logger.New(logger.WithDevelopment("notifsync"))
//	log.Warn("mark-read failed, keeping optimistic state",
//		logger.NotificationID(id),
//		logger.Error(err),
//	)
package logger

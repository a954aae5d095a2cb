// Package logging assembles the structured slog loggers used by romverify.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// helpers that stamp a component name and the current run id onto records.
// Warnings about skipped files go through WarnWithContext so every one carries
// an event type, a hint, and the impact on the scan.
package logging

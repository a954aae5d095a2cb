// Package preflight provides readiness checks for the directories and
// services romverify depends on.
//
// The CLI "romverify status" command runs RunAll and prints each Result.
// Network checks are skipped when no API key is configured or when the
// caller asks for an offline check.
package preflight

// Package pipeline runs ROM identification over a list of files: classify,
// hash, then match against the catalog of the detected system.
//
// Every input path yields exactly one Result, in input order. Failures on a
// single file (unrecognized type, unreadable archive, malformed header) are
// recorded on that file's Result and logged; they never stop the run. Only
// context cancellation ends Run early.
package pipeline

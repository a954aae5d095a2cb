// Package logs reads back the JSON log file written by the logging package.
//
// Records can be filtered by run id, component and minimum level, so the
// output of a single scan can be pulled out of a shared log. Follow polls
// the file for appended records and restarts from the top when the file is
// truncated.
package logs

// Package retroachievements downloads game catalogs from the
// RetroAchievements web API and keeps them in an on-disk cache.
//
// Client issues paced requests for the console id table and per-console game
// lists (with hashes). Cache stores the raw documents under the data
// directory, reuses them until a refresh is requested, and assembles the
// catalog.Set the scan pipeline matches against. Offline use works from
// whatever is already cached.
package retroachievements

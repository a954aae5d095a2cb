// Package catalog models the RetroAchievements game catalog: per-console game
// lists with their accepted ROM hashes, and the console id table used to
// request them.
//
// A Catalog is built once and then only read. Matching code refers to entries
// by index so results never copy or own catalog data.
package catalog

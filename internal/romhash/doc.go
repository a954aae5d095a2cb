// Package romhash computes the content hash the RetroAchievements catalog
// publishes for each supported system.
//
// Most systems hash the whole ROM. Nintendo DS images hash only the header,
// both boot code blocks and the icon/title block, concatenated in a fixed
// order; see ndsHash for the layout. Hashes are MD5 digests rendered as 32
// lowercase hex characters, and archive-wrapped ROMs hash identically to the
// raw file.
package romhash

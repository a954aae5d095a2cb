// Package bytesource gives the hashing and classification code a single
// random-access view over ROM bytes, whether they live in a plain file or
// inside a zip/7z archive.
//
// Archive entries are decompressed into memory once at open time; the archive
// readers in use cannot seek inside a compressed stream, so every later read is
// served from the in-memory copy. Plain files are read in place.
//
// Callers depend only on the Source interface and never need to know which
// adapter backs it.
package bytesource

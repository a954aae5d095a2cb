// Package textutil provides the text normalization and similarity scoring used
// to compare ROM file names against catalog titles.
//
// The primary use cases are:
//   - Turning a file name into a search query (extension stripped, separators
//     unified, case folded)
//   - Scoring a query against a title with a trigram overlap ratio in [0,1]
//
// Trigrams are taken over runes with two leading and one trailing space of
// padding, so a string of n runes yields n+1 trigrams. The score is the share
// of the query's trigrams that also occur in the title; it is asymmetric.
package textutil

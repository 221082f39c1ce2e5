// Package textutil provides text normalization helpers shared by the matching,
// alignment, and repair components.
//
// The primary use cases are:
//   - Folding human names and filenames to a comparable lowercase alphanumeric form
//   - Splitting free text into whitespace-delimited words
//   - Comparing two texts by word-frequency cosine similarity
//
// Folding decomposes accented characters before stripping, so "José" and
// "Jose" compare equal. Word splitting never drops punctuation attached to a
// word; it only collapses runs of whitespace, paragraph breaks included.
package textutil

// Package dataset reads and writes cohort tables as CSV.
//
// Decode infers one type per column from its non-empty cells: integers, then
// floats, then booleans (true/false in any case), falling back to strings.
// Empty cells decode to null. Input may be zstd or LZ4 compressed; with
// CompressionAuto the format is detected from the stream's magic number.
//
// Load, Save and Publish move tables through a blobstore.BlobStore. Names
// ending in ".zst" or ".lz4" are compressed on Save.
package dataset

// Package shard maps timestamps to the hierarchical directory names that
// address records on disk, and back.
//
// A timestamp t is stored under four nested directories:
//
//	<YYYY>/<MM>/<DD>/<YYYY-MM-DD HH:MM:SS>
//
// Every component is zero-padded so that lexicographic order of sibling names
// equals chronological order. This property is what lets the store find the
// latest record by repeatedly picking the greatest child name, with no index
// beyond the directory names themselves.
//
// Timestamps are normalised to UTC and truncated to one-second resolution
// before encoding. Year 1 (Epoch) is a valid, representable year: it marks
// records that predate any checkpoint, such as imported base counts.
package shard

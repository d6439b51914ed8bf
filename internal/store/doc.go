// Package store provides the filesystem-resident record store.
//
// The store is an append-only directory tree. The tree is the index: there
// is no other metadata, and every lookup is a walk over directory names.
//
//	<root>/<entity>/<category>/<YYYY>/<MM>/<DD>/<YYYY-MM-DD HH:MM:SS>/<value>
//	<root>/<entity>/<category>/summary/<YYYY>/<MM>/<DD>/<YYYY-MM-DD HH:MM:SS>/<total>
//
// Records live directly under a category. Checkpoints (cumulative totals
// written by package checkpoint) live under the reserved "summary" child of
// the category and are sharded the same way, which is why "summary" cannot
// be used as a category name.
//
// # Leaf entries
//
// A leaf directory holds one empty file per distinct value recorded in that
// second. The leaf's value is the sum of every digit-named entry. Writing the
// same value twice in one second is a no-op; two different values in the
// same second are both counted.
//
// # Latest lookup
//
// Latest descends from the category root choosing the numerically greatest
// digit-named directory at each level, then picks the greatest leaf in the
// day directory. It never compares timestamps across branches. A shard
// directory left empty by an interrupted write hides older siblings from
// Latest until something is written beneath it.
//
// # Range scans
//
// CountFiltered walks year, month, day and leaf levels breadth-first. In the
// default RangeIndependent mode the year/month/day bounds are applied
// independently at each level, so a directional scan that crosses a
// year or month boundary can miss records (for After, a record in a later
// year but an earlier month than the boundary is excluded). Counts in this
// mode match the system the on-disk format comes from. RangeHierarchical
// relaxes deeper bounds once a level is strictly inside the range.
//
// The store assumes a single writer and provides no isolation between
// readers and that writer.
package store

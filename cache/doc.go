// Package cache memoizes stroke tessellation.
//
// Converting a stroke's centerline into a triangle mesh is done once per
// stroke content and cached by stroke ID. Entries are kept in LRU order and
// evicted inline whenever the cache exceeds its memory budget or entry
// limit. A stale entry (its stored content hash no longer matches the
// stroke) is rebuilt transparently on the next GetOrCreate.
//
//	gc, _ := cache.New(cache.DefaultConfig())
//	geom := gc.GetOrCreate(stroke)
//	// upload geom.Vertices, geom.Normals and geom.Indices
//
// Warm prepares geometry for recent strokes ahead of their first frame;
// large batches are tessellated on a worker pool outside the cache lock.
//
// Layout and PrimitiveState describe the buffers to a GPU renderer.
//
// # Thread Safety
//
// GeometryCache is safe for concurrent use. Returned geometry buffers must
// be treated as read-only.
package cache

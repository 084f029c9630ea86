// Package cull answers viewport visibility queries over a stroke set.
//
// A Culler maintains a quadtree over stroke bounding boxes. The root cell is
// the union of all stroke bounds; any cell holding more than
// MinStrokesPerCell strokes is split into four quadrants that exactly cover
// it, until MaxDepth. A stroke is stored in every leaf whose bounds
// intersect its box, so queries deduplicate.
//
// The tree is rebuilt wholesale, never patched. Single-stroke changes only
// call MarkDirty; the next Cull coalesces all pending changes into one
// rebuild:
//
//	c, _ := cull.New(cull.DefaultConfig())
//	c.MarkDirty() // a stroke was added
//	visible := c.Cull(strokes, viewport)
//
// Queries expand the viewport by Margin to avoid pop-in while panning. A
// pathological input where every stroke shares one bounding box cannot be
// split and degrades to a linear scan of a single leaf.
package cull

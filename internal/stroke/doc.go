// Package stroke converts ink stroke centerlines into triangle meshes.
//
// # Algorithm Overview
//
// Tessellation emits a ribbon of constant width around the centerline:
//   - Every input point produces two vertices, offset by +width/2 and
//     -width/2 along the unit perpendicular of its segment
//   - Consecutive vertex pairs are joined by two triangles, six indices
//     per segment
//
// The perpendicular of a point is taken from its outgoing segment; the last
// point reuses its incoming one. Zero-length segments inherit the previous
// normal so repeated samples do not produce NaN vertices.
//
// # Output
//
// A Mesh holds interleaved float32 x,y vertices and normals, a uint32
// triangle list, and the centerline bounds widened by half the width.
// Strokes with fewer than two points produce an empty mesh.
//
// Joins and caps are not rounded; at the widths ink strokes use the ribbon
// overlap at corners is not visible.
package stroke

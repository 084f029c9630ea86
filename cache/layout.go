package cache

import "github.com/gogpu/gputypes"

// vertexStride is the byte stride of both the position and the normal
// buffer: one float32x2 per vertex.
const vertexStride = 8

// IndexFormat is the format of Geometry.Indices.
const IndexFormat = gputypes.IndexFormatUint32

// Layout returns the vertex buffer layouts for Geometry: buffer 0 holds
// positions at shader location 0, buffer 1 holds normals at location 1.
func Layout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
			},
		},
		{
			ArrayStride: vertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1}, // normal
			},
		},
	}
}

// PrimitiveState returns the primitive state matching Geometry.Indices:
// an unculled triangle list (vertex winding alternates along a stroke).
func PrimitiveState() gputypes.PrimitiveState {
	return gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}
}

package device

// VertexSize is the stride of the engine vertex format:
// position vec3 @0, normal vec3 @12, uv vec2 @24, color vec4 @32.
const VertexSize = 48

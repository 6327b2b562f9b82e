// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// LitVertexShader transforms scene meshes for the lighting pass.
//
//go:embed lit.vert
var LitVertexShader string

// LitFragmentShader shades scene meshes with ambient, punctual lights and
// one shadow map.
//
//go:embed lit.frag
var LitFragmentShader string

// DepthVertexShader transforms meshes into light space for the shadow pass.
//
//go:embed depth.vert
var DepthVertexShader string

// DepthFragmentShader writes depth only.
//
//go:embed depth.frag
var DepthFragmentShader string

// Package formats decodes the model file formats loaded by the viewer.
// RSM (Resource Model) is a node-hierarchy model format with per-node
// rotation, position and scale keyframes.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/Faultbox/castleview/pkg/encoding"
)

// RSM format errors.
var (
	ErrInvalidRSMMagic       = errors.New("invalid RSM magic: expected 'GRSM'")
	ErrUnsupportedRSMVersion = errors.New("unsupported RSM version")
	ErrTruncatedRSMData      = errors.New("truncated RSM data")
	ErrInvalidRSMCount       = errors.New("invalid RSM element count")
)

const (
	rsmMagic    = "GRSM"
	rsmNameSize = 40

	maxRSMNodes     = 10000
	maxRSMTextures  = 1000
	maxRSMElements  = 100000
	maxRSMKeyframes = 10000
	maxRSMBoxes     = 1000
)

// RSMVersion represents the RSM file version.
type RSMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v RSMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// AtLeast returns true if version is >= major.minor.
func (v RSMVersion) AtLeast(major, minor uint8) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

func (v RSMVersion) supported() bool {
	return v.Major == 1 && v.Minor >= 1 && v.Minor <= 5
}

// RSMShadingType represents the shading mode for rendering.
type RSMShadingType int32

const (
	RSMShadingNone   RSMShadingType = 0
	RSMShadingFlat   RSMShadingType = 1
	RSMShadingSmooth RSMShadingType = 2
)

// String returns a human-readable shading type name.
func (s RSMShadingType) String() string {
	switch s {
	case RSMShadingNone:
		return "None"
	case RSMShadingFlat:
		return "Flat"
	case RSMShadingSmooth:
		return "Smooth"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// RSMTexCoord is a texture coordinate with its vertex color (v1.2+).
type RSMTexCoord struct {
	Color [4]uint8
	U, V  float32
}

// RSMFace is a triangle face in a node mesh.
type RSMFace struct {
	VertexIDs   [3]uint16
	TexCoordIDs [3]uint16
	TextureID   uint16
	Padding     uint16
	TwoSide     int32
	SmoothGroup int32 // v1.2+
}

// RSMPosKeyframe is a position keyframe (v < 1.5). Frame is in milliseconds.
type RSMPosKeyframe struct {
	Frame    int32
	Position [3]float32
}

// RSMRotKeyframe is a rotation keyframe. Frame is in milliseconds.
type RSMRotKeyframe struct {
	Frame      int32
	Quaternion [4]float32 // x, y, z, w
}

// RSMScaleKeyframe is a scale keyframe (v >= 1.5). Frame is in milliseconds.
type RSMScaleKeyframe struct {
	Frame int32
	Scale [3]float32
}

// RSMNode is a node in the model hierarchy.
type RSMNode struct {
	Name       string
	Parent     string // empty or equal to Name for the root
	TextureIDs []int32

	Matrix   [9]float32 // vertex-only 3x3 transform, not inherited
	Offset   [3]float32 // vertex-only pivot offset, not inherited
	Position [3]float32
	RotAngle float32
	RotAxis  [3]float32
	Scale    [3]float32

	Vertices  [][3]float32
	TexCoords []RSMTexCoord
	Faces     []RSMFace

	PosKeys   []RSMPosKeyframe
	RotKeys   []RSMRotKeyframe
	ScaleKeys []RSMScaleKeyframe
}

// IsRoot reports whether the node has no parent.
func (n *RSMNode) IsRoot() bool {
	return n.Parent == "" || n.Parent == n.Name
}

// HasKeyframes reports whether the node carries any animation track.
func (n *RSMNode) HasKeyframes() bool {
	return len(n.PosKeys) > 0 || len(n.RotKeys) > 0 || len(n.ScaleKeys) > 0
}

// RSMVolumeBox is a collision volume box.
type RSMVolumeBox struct {
	Size     [3]float32
	Position [3]float32
	Rotation [3]float32
	Flag     int32 // v1.3+
}

// RSM is a decoded RSM file.
type RSM struct {
	Version     RSMVersion
	AnimLength  int32 // milliseconds
	Shading     RSMShadingType
	Alpha       float32
	Textures    []string
	RootNode    string
	Nodes       []RSMNode
	VolumeBoxes []RSMVolumeBox
}

// rsmReader reads little-endian fields and keeps the first error.
type rsmReader struct {
	r   *bytes.Reader
	err error
}

func (r *rsmReader) read(v any) {
	if r.err != nil {
		return
	}
	if err := binary.Read(r.r, binary.LittleEndian, v); err != nil {
		r.err = ErrTruncatedRSMData
	}
}

func (r *rsmReader) int32() int32 {
	var v int32
	r.read(&v)
	return v
}

func (r *rsmReader) name() string {
	buf := make([]byte, rsmNameSize)
	r.read(buf)
	if r.err != nil {
		return ""
	}
	return encoding.FixedString(buf)
}

// count reads an element count and rejects negative or oversized values.
func (r *rsmReader) count(limit int32, what string) int {
	n := r.int32()
	if r.err != nil {
		return 0
	}
	if n < 0 || n > limit {
		r.err = fmt.Errorf("%w: %d %s", ErrInvalidRSMCount, n, what)
		return 0
	}
	return int(n)
}

// ParseRSM decodes an RSM file (versions 1.1 to 1.5).
func ParseRSM(data []byte) (*RSM, error) {
	if len(data) < len(rsmMagic)+2 {
		return nil, ErrTruncatedRSMData
	}
	if string(data[:4]) != rsmMagic {
		return nil, ErrInvalidRSMMagic
	}

	r := &rsmReader{r: bytes.NewReader(data[4:])}
	rsm := &RSM{Alpha: 1}
	r.read(&rsm.Version.Major)
	r.read(&rsm.Version.Minor)
	if !rsm.Version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	rsm.AnimLength = r.int32()
	rsm.Shading = RSMShadingType(r.int32())
	if rsm.Version.AtLeast(1, 4) {
		var alpha uint8
		r.read(&alpha)
		rsm.Alpha = float32(alpha) / 255
	}
	reserved := make([]byte, 16)
	r.read(reserved)

	rsm.Textures = make([]string, r.count(maxRSMTextures, "textures"))
	for i := range rsm.Textures {
		rsm.Textures[i] = r.name()
	}

	rsm.RootNode = r.name()

	rsm.Nodes = make([]RSMNode, r.count(maxRSMNodes, "nodes"))
	for i := range rsm.Nodes {
		readRSMNode(r, rsm.Version, &rsm.Nodes[i])
		if r.err != nil {
			return nil, fmt.Errorf("node %d: %w", i, r.err)
		}
	}
	if r.err != nil {
		return nil, r.err
	}

	// Volume boxes are optional trailing data.
	if r.r.Len() >= 4 {
		rsm.VolumeBoxes = make([]RSMVolumeBox, r.count(maxRSMBoxes, "volume boxes"))
		for i := range rsm.VolumeBoxes {
			box := &rsm.VolumeBoxes[i]
			r.read(&box.Size)
			r.read(&box.Position)
			r.read(&box.Rotation)
			if rsm.Version.AtLeast(1, 3) {
				box.Flag = r.int32()
			}
		}
		if r.err != nil {
			return nil, fmt.Errorf("volume boxes: %w", r.err)
		}
	}

	return rsm, nil
}

func readRSMNode(r *rsmReader, version RSMVersion, node *RSMNode) {
	node.Name = r.name()
	node.Parent = r.name()

	node.TextureIDs = make([]int32, r.count(maxRSMTextures, "texture ids"))
	r.read(node.TextureIDs)

	r.read(&node.Matrix)
	r.read(&node.Offset)
	r.read(&node.Position)
	r.read(&node.RotAngle)
	r.read(&node.RotAxis)
	r.read(&node.Scale)

	node.Vertices = make([][3]float32, r.count(maxRSMElements, "vertices"))
	r.read(node.Vertices)

	node.TexCoords = make([]RSMTexCoord, r.count(maxRSMElements, "texcoords"))
	for i := range node.TexCoords {
		tc := &node.TexCoords[i]
		if version.AtLeast(1, 2) {
			r.read(&tc.Color)
		} else {
			tc.Color = [4]uint8{255, 255, 255, 255}
		}
		r.read(&tc.U)
		r.read(&tc.V)
	}

	node.Faces = make([]RSMFace, r.count(maxRSMElements, "faces"))
	for i := range node.Faces {
		face := &node.Faces[i]
		r.read(&face.VertexIDs)
		r.read(&face.TexCoordIDs)
		r.read(&face.TextureID)
		r.read(&face.Padding)
		face.TwoSide = r.int32()
		if version.AtLeast(1, 2) {
			face.SmoothGroup = r.int32()
		}
	}

	if !version.AtLeast(1, 5) {
		node.PosKeys = make([]RSMPosKeyframe, r.count(maxRSMKeyframes, "position keys"))
		r.read(node.PosKeys)
	}

	node.RotKeys = make([]RSMRotKeyframe, r.count(maxRSMKeyframes, "rotation keys"))
	r.read(node.RotKeys)

	if version.AtLeast(1, 5) {
		node.ScaleKeys = make([]RSMScaleKeyframe, r.count(maxRSMKeyframes, "scale keys"))
		r.read(node.ScaleKeys)
	}
}

// ParseRSMFile decodes an RSM file from disk.
func ParseRSMFile(path string) (*RSM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RSM file: %w", err)
	}
	return ParseRSM(data)
}

// NodeByName returns a node by its name, or nil if not found.
func (rsm *RSM) NodeByName(name string) *RSMNode {
	for i := range rsm.Nodes {
		if rsm.Nodes[i].Name == name {
			return &rsm.Nodes[i]
		}
	}
	return nil
}

// Children returns the nodes whose parent is the given name.
func (rsm *RSM) Children(parent string) []*RSMNode {
	var children []*RSMNode
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if !n.IsRoot() && n.Parent == parent {
			children = append(children, n)
		}
	}
	return children
}

// HasAnimation reports whether any node has more than one keyframe.
// A single keyframe is a static pose, not an animation.
func (rsm *RSM) HasAnimation() bool {
	if rsm.AnimLength <= 0 {
		return false
	}
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		if len(n.RotKeys) > 1 || len(n.PosKeys) > 1 || len(n.ScaleKeys) > 1 {
			return true
		}
	}
	return false
}

// TotalVertexCount returns the number of vertices across all nodes.
func (rsm *RSM) TotalVertexCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Vertices)
	}
	return total
}

// TotalFaceCount returns the number of faces across all nodes.
func (rsm *RSM) TotalFaceCount() int {
	total := 0
	for i := range rsm.Nodes {
		total += len(rsm.Nodes[i].Faces)
	}
	return total
}

package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Faultbox/castleview/pkg/encoding"
)

// MarshalBinary encodes the model in the layout ParseRSM reads for rsm.Version.
// Used by cmd/rsminfo to re-save trimmed clips and by tests to build fixtures.
func (rsm *RSM) MarshalBinary() ([]byte, error) {
	if !rsm.Version.supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRSMVersion, rsm.Version)
	}

	var buf bytes.Buffer
	w := func(v any) {
		// bytes.Buffer writes cannot fail.
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	name := func(s string) {
		buf.Write(encoding.PutFixedString(s, rsmNameSize))
	}
	count := func(n int) {
		w(int32(n))
	}

	buf.WriteString(rsmMagic)
	w(rsm.Version.Major)
	w(rsm.Version.Minor)
	w(rsm.AnimLength)
	w(int32(rsm.Shading))
	if rsm.Version.AtLeast(1, 4) {
		w(uint8(rsm.Alpha * 255))
	}
	buf.Write(make([]byte, 16))

	count(len(rsm.Textures))
	for _, tex := range rsm.Textures {
		name(tex)
	}
	name(rsm.RootNode)

	count(len(rsm.Nodes))
	for i := range rsm.Nodes {
		n := &rsm.Nodes[i]
		name(n.Name)
		name(n.Parent)
		count(len(n.TextureIDs))
		w(n.TextureIDs)
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)

		count(len(n.Vertices))
		w(n.Vertices)

		count(len(n.TexCoords))
		for _, tc := range n.TexCoords {
			if rsm.Version.AtLeast(1, 2) {
				w(tc.Color)
			}
			w(tc.U)
			w(tc.V)
		}

		count(len(n.Faces))
		for _, f := range n.Faces {
			w(f.VertexIDs)
			w(f.TexCoordIDs)
			w(f.TextureID)
			w(f.Padding)
			w(f.TwoSide)
			if rsm.Version.AtLeast(1, 2) {
				w(f.SmoothGroup)
			}
		}

		if !rsm.Version.AtLeast(1, 5) {
			count(len(n.PosKeys))
			w(n.PosKeys)
		}
		count(len(n.RotKeys))
		w(n.RotKeys)
		if rsm.Version.AtLeast(1, 5) {
			count(len(n.ScaleKeys))
			w(n.ScaleKeys)
		}
	}

	count(len(rsm.VolumeBoxes))
	for _, box := range rsm.VolumeBoxes {
		w(box.Size)
		w(box.Position)
		w(box.Rotation)
		if rsm.Version.AtLeast(1, 3) {
			w(box.Flag)
		}
	}

	return buf.Bytes(), nil
}

package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/Faultbox/castleview/pkg/encoding"
)

// Builder assembles a GRF 0x200 archive in memory.
type Builder struct {
	names []string
	data  map[string][]byte
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{data: make(map[string][]byte)}
}

// Add stores a file under name. Adding the same name twice replaces the
// earlier contents.
func (b *Builder) Add(name string, data []byte) {
	key := normalizePath(name)
	if _, ok := b.data[key]; !ok {
		b.names = append(b.names, key)
	}
	b.data[key] = data
}

// Len returns the number of files added.
func (b *Builder) Len() int {
	return len(b.names)
}

// WriteTo writes the archive: header, zlib entries padded to 8 bytes, then
// the compressed file table.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	var body bytes.Buffer
	var table bytes.Buffer

	for _, name := range b.names {
		content := b.data[name]
		compressed, err := deflate(content)
		if err != nil {
			return 0, fmt.Errorf("compressing %s: %w", name, err)
		}
		aligned := len(compressed)
		if pad := aligned % 8; pad != 0 {
			aligned += 8 - pad
		}

		offset := body.Len()
		body.Write(compressed)
		body.Write(make([]byte, aligned-len(compressed)))

		table.Write(encoding.UTF8ToEUCKR(strings.ReplaceAll(name, "/", "\\")))
		table.WriteByte(0)
		var rec [entryTrailer]byte
		binary.LittleEndian.PutUint32(rec[0:], uint32(len(compressed)))
		binary.LittleEndian.PutUint32(rec[4:], uint32(aligned))
		binary.LittleEndian.PutUint32(rec[8:], uint32(len(content)))
		rec[12] = flagFile
		binary.LittleEndian.PutUint32(rec[13:], uint32(offset))
		table.Write(rec[:])
	}

	packedTable, err := deflate(table.Bytes())
	if err != nil {
		return 0, fmt.Errorf("compressing file table: %w", err)
	}

	header := Header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(b.names)) + 7,
		Version:     version200,
	}
	copy(header.Magic[:], grfMagic)

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, &header); err != nil {
		return 0, err
	}
	out.Write(body.Bytes())
	var sizes [8]byte
	binary.LittleEndian.PutUint32(sizes[0:], uint32(len(packedTable)))
	binary.LittleEndian.PutUint32(sizes[4:], uint32(table.Len()))
	out.Write(sizes[:])
	out.Write(packedTable)

	return out.WriteTo(w)
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

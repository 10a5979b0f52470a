// Package persistence implements durable storage for the graph, candidate,
// rule, miner-state, and synapse files named in §6.4: WAL-protected atomic
// writes with a checksummed msgpack record format.
package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	magicBytes    = "HCDB"
	formatVersion = uint16(1)
	headerSize    = 4 + 2 + 2 + 8 + 4 // magic + version + reserved + datalen + checksum
)

type recordHeader struct {
	Magic    [4]byte
	Version  uint16
	_        uint16
	DataLen  uint64
	Checksum uint32
}

// Codec encodes/decodes arbitrary values to the on-disk record format.
// msgpack's map-based encoding means an older reader decoding a newer
// writer's record ignores fields it doesn't know about instead of failing.
// Those unknown fields are not kept: re-encoding the decoded value drops
// them.
type Codec struct{}

// NewCodec returns a stateless codec.
func NewCodec() *Codec { return &Codec{} }

// Encode serializes v to a framed, checksummed record.
func (c *Codec) Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}

	h := recordHeader{
		Version:  formatVersion,
		DataLen:  uint64(len(data)),
		Checksum: crc32.ChecksumIEEE(data),
	}
	copy(h.Magic[:], magicBytes)

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	buf.Write(data)
	return buf.Bytes(), nil
}

// Decode verifies and deserializes a record into out, which must be a
// pointer.
func (c *Codec) Decode(raw []byte, out any) error {
	if len(raw) < headerSize {
		return errors.New("persistence: record too short")
	}

	buf := bytes.NewReader(raw)
	var h recordHeader
	if err := binary.Read(buf, binary.LittleEndian, &h); err != nil {
		return err
	}
	if string(h.Magic[:]) != magicBytes {
		return errors.New("persistence: bad magic bytes")
	}
	if h.Version > formatVersion {
		return errors.New("persistence: unsupported format version")
	}

	data := make([]byte, h.DataLen)
	if _, err := io.ReadFull(buf, data); err != nil {
		return err
	}
	if crc32.ChecksumIEEE(data) != h.Checksum {
		return errors.New("persistence: checksum mismatch")
	}

	return msgpack.Unmarshal(data, out)
}

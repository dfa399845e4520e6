// Package rcon is a minimal remote console client: one login handshake, then
// synchronous length-prefixed command/response round trips over TCP.
package rcon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Packet types.
const (
	TypeResponse     int32 = 0
	TypeCommand      int32 = 2
	TypeAuthResponse int32 = 2
	TypeAuth         int32 = 3
)

const (
	// MaxFrameSize is the response buffer: a whole frame, length prefix included, must fit.
	MaxFrameSize = 4096

	headerSize = 4 + 4 // id + type
	minLength  = headerSize + 2

	// MaxBodySize is the longest body that fits in MaxFrameSize.
	MaxBodySize = MaxFrameSize - 4 - minLength
)

// AuthFailedID is the request id the server answers with when the password is wrong.
const AuthFailedID int32 = -1

// Packet is one frame:
//
//	int32le length | int32le id | int32le type | body | 0x00 | 0x00
//
// length counts everything after itself.
type Packet struct {
	ID   int32
	Type int32
	Body string
}

func (p Packet) MarshalBinary() ([]byte, error) {
	length := headerSize + len(p.Body) + 2
	if 4+length > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, 4+length)
	}
	b := make([]byte, 4+length)
	binary.LittleEndian.PutUint32(b[0:4], uint32(length))
	binary.LittleEndian.PutUint32(b[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(b[8:12], uint32(p.Type))
	copy(b[12:], p.Body)
	// trailing two bytes stay zero
	return b, nil
}

func WritePacket(w io.Writer, p Packet) error {
	b, err := p.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// ReadPacket reads exactly one frame. Frames that would not fit MaxFrameSize, that are
// shorter than the fixed header or that lack terminators are rejected, as is EOF
// anywhere inside a frame.
func ReadPacket(r io.Reader) (Packet, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Packet{}, closedErr(err)
	}
	length := int32(binary.LittleEndian.Uint32(lenBuf[:]))
	if length < minLength {
		return Packet{}, fmt.Errorf("%w: length %d below minimum %d", ErrMalformedFrame, length, minLength)
	}
	if 4+int64(length) > MaxFrameSize {
		return Packet{}, fmt.Errorf("%w: %d bytes exceeds %d-byte buffer", ErrFrameTooLarge, 4+int64(length), MaxFrameSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Packet{}, closedErr(err)
	}
	if buf[length-1] != 0 || buf[length-2] != 0 {
		return Packet{}, fmt.Errorf("%w: missing terminators", ErrMalformedFrame)
	}
	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(buf[0:4])),
		Type: int32(binary.LittleEndian.Uint32(buf[4:8])),
		Body: string(buf[headerSize : length-2]),
	}, nil
}

func closedErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrConnClosed, err)
	}
	return err
}

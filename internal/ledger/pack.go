package ledger

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// encoder writes the ledger's little-endian wire format.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) bytes() []byte {
	return e.buf.Bytes()
}

func (e *encoder) uint8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *encoder) uint16(v uint16) {
	e.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *encoder) uint32(v uint32) {
	e.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *encoder) uint64(v uint64) {
	e.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *encoder) float32(v float32) {
	e.uint32(math.Float32bits(v))
}

func (e *encoder) float64(v float64) {
	e.uint64(math.Float64bits(v))
}

func (e *encoder) varuint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			e.buf.WriteByte(b)
			return
		}
		e.buf.WriteByte(b | 0x80)
	}
}

func (e *encoder) varint32(v int32) {
	e.varuint32(uint32((v << 1) ^ (v >> 31)))
}

func (e *encoder) blob(b []byte) {
	e.varuint32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) name(s string) error {
	v, err := NameToUint64(s)
	if err != nil {
		return err
	}
	e.uint64(v)
	return nil
}

// NameToUint64 packs an account or action name into its 64-bit form. Names
// take up to 12 characters from '.', 'a'-'z' and '1'-'5', plus an optional
// 13th character from '.', 'a'-'j' and '1'-'5'.
func NameToUint64(s string) (uint64, error) {
	if len(s) > 13 {
		return 0, fmt.Errorf("name %q is longer than 13 characters", s)
	}
	var v uint64
	for i := 0; i < len(s); i++ {
		c, ok := nameSymbol(s[i])
		if !ok {
			return 0, fmt.Errorf("name %q contains %q", s, s[i])
		}
		if i < 12 {
			v |= uint64(c&0x1f) << (64 - 5*(i+1))
			continue
		}
		if c > 0x0f {
			return 0, fmt.Errorf("name %q has an invalid 13th character", s)
		}
		v |= uint64(c)
	}
	return v, nil
}

func nameSymbol(c byte) (byte, bool) {
	switch {
	case c == '.':
		return 0, true
	case c >= 'a' && c <= 'z':
		return c - 'a' + 6, true
	case c >= '1' && c <= '5':
		return c - '1' + 1, true
	default:
		return 0, false
	}
}

func packAction(e *encoder, a PackedAction) error {
	if err := e.name(a.Account); err != nil {
		return err
	}
	if err := e.name(a.Name); err != nil {
		return err
	}
	e.varuint32(uint32(len(a.Authorization)))
	for _, p := range a.Authorization {
		if err := e.name(p.Actor); err != nil {
			return err
		}
		if err := e.name(p.Permission); err != nil {
			return err
		}
	}
	e.blob(a.Data)
	return nil
}

// Pack serializes tx in the byte layout the node hashes and verifies.
func (tx Transaction) Pack() ([]byte, error) {
	var e encoder
	e.uint32(uint32(tx.Expiration.Unix()))
	e.uint16(tx.RefBlockNum)
	e.uint32(tx.RefBlockPrefix)
	e.varuint32(tx.MaxNetUsageWords)
	e.uint8(tx.MaxCPUUsageMS)
	e.varuint32(tx.DelaySec)
	e.varuint32(0) // context-free actions
	e.varuint32(uint32(len(tx.Actions)))
	for _, a := range tx.Actions {
		if err := packAction(&e, a); err != nil {
			return nil, err
		}
	}
	e.varuint32(0) // transaction extensions
	return e.bytes(), nil
}

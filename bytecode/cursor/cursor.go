// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package cursor implements a position-tracked, little-endian primitive
// reader over an immutable byte buffer, the lowest layer of the bytecode
// decoder.
package cursor

import (
	"errors"
	"fmt"
)

// ErrTruncated is returned whenever a read would move the cursor past the
// end of the buffer.
var ErrTruncated = errors.New("truncated input")

// Cursor reads primitives out of an immutable byte slice, advancing its
// position as it goes. The zero value, wrapped around a buffer via New, has
// its position at offset 0.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a Cursor positioned at the start of buf. buf is never
// modified or copied.
func New(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// CurrentIndex returns the cursor's current byte offset into the buffer.
func (c *Cursor) CurrentIndex() int {
	return c.pos
}

// IsEOF reports whether the cursor has consumed the whole buffer.
func (c *Cursor) IsEOF() bool {
	return c.pos >= len(c.buf)
}

// Jump advances the cursor by k bytes without reading them.
func (c *Cursor) Jump(k int) error {
	if c.pos+k > len(c.buf) || c.pos+k < 0 {
		return fmt.Errorf("jump %d bytes from %d: %w", k, c.pos, ErrTruncated)
	}
	c.pos += k
	return nil
}

func (c *Cursor) require(n int) error {
	if c.pos+n > len(c.buf) {
		return fmt.Errorf("need %d bytes at %d, have %d: %w", n, c.pos, len(c.buf)-c.pos, ErrTruncated)
	}
	return nil
}

// ReadByte advances the cursor by one byte and returns it.
func (c *Cursor) ReadByte() (byte, error) {
	if err := c.require(1); err != nil {
		return 0, err
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// ReadChar reads one byte reinterpreted as a 7-bit ASCII codepoint.
func (c *Cursor) ReadChar() (byte, error) {
	return c.ReadByte()
}

// ReadLong consumes 4 little-endian bytes as a signed 32-bit integer.
func (c *Cursor) ReadLong() (int32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := int32(uint32(c.buf[c.pos]) |
		uint32(c.buf[c.pos+1])<<8 |
		uint32(c.buf[c.pos+2])<<16 |
		uint32(c.buf[c.pos+3])<<24)
	c.pos += 4
	return v, nil
}

// ReadULong consumes 4 little-endian bytes as an unsigned 32-bit integer.
func (c *Cursor) ReadULong() (uint32, error) {
	if err := c.require(4); err != nil {
		return 0, err
	}
	v := uint32(c.buf[c.pos]) |
		uint32(c.buf[c.pos+1])<<8 |
		uint32(c.buf[c.pos+2])<<16 |
		uint32(c.buf[c.pos+3])<<24
	c.pos += 4
	return v, nil
}

// ReadShortString reads one length byte n, then exactly n ASCII bytes.
func (c *Cursor) ReadShortString() (string, error) {
	n, err := c.ReadByte()
	if err != nil {
		return "", err
	}
	return c.readASCII(int(n))
}

// ReadString reads one u32 length prefix n, then exactly n ASCII bytes.
func (c *Cursor) ReadString() (string, error) {
	n, err := c.ReadULong()
	if err != nil {
		return "", err
	}
	return c.readASCII(int(n))
}

func (c *Cursor) readASCII(n int) (string, error) {
	if err := c.require(n); err != nil {
		return "", err
	}
	s := string(c.buf[c.pos : c.pos+n])
	c.pos += n
	return s, nil
}

// ReadBytes returns a view of the next n bytes and advances the cursor past
// them. The returned slice aliases the cursor's underlying buffer.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.require(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Save returns the current position so the caller can restore it later via
// Restore, for one-shot look-ahead.
func (c *Cursor) Save() int {
	return c.pos
}

// Restore rewinds the cursor to a position previously returned by Save.
func (c *Cursor) Restore(pos int) {
	c.pos = pos
}

package digest

import (
	"encoding/hex"
	"hash"
	"hash/fnv"
	"io"
	"os"
)

// FNV1a64 implements the Fowler-Noll-Vo 1a hash, 64 bits output. Cheap,
// non-cryptographic; useful for quick local scans where collision
// resistance matters less because the resolver always corroborates matches
// with size/name/mtime agreement (spec.md §4.5).
type FNV1a64 struct {
	h hash.Hash64
}

func NewFNV1a64() *FNV1a64 { return &FNV1a64{h: fnv.New64a()} }

func (c *FNV1a64) Name() string    { return "fnv-1a-64" }
func (c *FNV1a64) New() Algorithm  { return NewFNV1a64() }
func (c *FNV1a64) OutputSize() int { return c.h.Size() }
func (c *FNV1a64) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *FNV1a64) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *FNV1a64) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

// FNV1a128 implements the Fowler-Noll-Vo 1a hash, 128 bits output.
type FNV1a128 struct {
	h hash.Hash
}

func NewFNV1a128() *FNV1a128 { return &FNV1a128{h: fnv.New128a()} }

func (c *FNV1a128) Name() string    { return "fnv-1a-128" }
func (c *FNV1a128) New() Algorithm  { return NewFNV1a128() }
func (c *FNV1a128) OutputSize() int { return c.h.Size() }
func (c *FNV1a128) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *FNV1a128) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *FNV1a128) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

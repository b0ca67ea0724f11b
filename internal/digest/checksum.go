package digest

import (
	"encoding/hex"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/crc64"
	"io"
	"os"
)

// CRC32 implements the IEEE cyclic redundancy check, 32 bits output.
type CRC32 struct {
	h hash.Hash32
}

func NewCRC32() *CRC32 { return &CRC32{h: crc32.NewIEEE()} }

func (c *CRC32) Name() string    { return "crc-32" }
func (c *CRC32) New() Algorithm  { return NewCRC32() }
func (c *CRC32) OutputSize() int { return c.h.Size() }
func (c *CRC32) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *CRC32) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *CRC32) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

// CRC64 implements the ISO cyclic redundancy check, 64 bits output.
type CRC64 struct {
	h hash.Hash64
}

func NewCRC64() *CRC64 { return &CRC64{h: crc64.New(crc64.MakeTable(crc64.ISO))} }

func (c *CRC64) Name() string    { return "crc-64" }
func (c *CRC64) New() Algorithm  { return NewCRC64() }
func (c *CRC64) OutputSize() int { return c.h.Size() }
func (c *CRC64) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *CRC64) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *CRC64) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

// Adler32 implements Mark Adler's checksum algorithm, 32 bits output.
type Adler32 struct {
	h hash.Hash32
}

func NewAdler32() *Adler32 { return &Adler32{h: adler32.New()} }

func (c *Adler32) Name() string    { return "adler-32" }
func (c *Adler32) New() Algorithm  { return NewAdler32() }
func (c *Adler32) OutputSize() int { return c.h.Size() }
func (c *Adler32) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *Adler32) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *Adler32) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

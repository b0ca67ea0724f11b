package digest

import (
	"crypto/sha1"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// SHA1 implements the legacy 160-bit cryptographic hash, kept for
// compatibility with stores created under it.
type SHA1 struct {
	h hash.Hash
}

func NewSHA1() *SHA1 { return &SHA1{h: sha1.New()} }

func (c *SHA1) Name() string    { return "sha-1" }
func (c *SHA1) New() Algorithm  { return NewSHA1() }
func (c *SHA1) OutputSize() int { return c.h.Size() }
func (c *SHA1) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *SHA1) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *SHA1) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

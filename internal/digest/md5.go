package digest

import (
	"crypto/md5"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// MD5 implements the classic message-digest algorithm; used by the
// md5-vs-hash_file round-trip law (spec.md §8, law 9).
type MD5 struct {
	h hash.Hash
}

func NewMD5() *MD5 { return &MD5{h: md5.New()} }

func (c *MD5) Name() string    { return "md5" }
func (c *MD5) New() Algorithm  { return NewMD5() }
func (c *MD5) OutputSize() int { return c.h.Size() }
func (c *MD5) Digest() string  { return hex.EncodeToString(c.h.Sum(nil)) }
func (c *MD5) ReadBytes(data []byte) error {
	_, err := c.h.Write(data)
	return err
}
func (c *MD5) ReadFile(path string) error {
	fd, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fd.Close()
	_, err = io.Copy(c.h, fd)
	return err
}

// Package digest implements the byte- and file-level hashing primitives and
// the commutative directory combinator used throughout dupescan.
package digest

import (
	"fmt"
	"strings"
)

// Algorithm is implemented by every hash algorithm registered with dupescan.
// It mirrors the interface the teacher project used for its pluggable hash
// algorithms, generalized to the digest.Algorithm name.
type Algorithm interface {
	// Name returns the canonical, lowercase, hyphenated algorithm name.
	Name() string
	// New returns a fresh instance of this algorithm with zeroed state.
	New() Algorithm
	// OutputSize returns the digest size in bytes.
	OutputSize() int
	// ReadFile streams the content of the file at path into the hash state.
	ReadFile(path string) error
	// ReadBytes folds data into the hash state.
	ReadBytes(data []byte) error
	// Digest returns the current hash state as a lowercase hex string.
	Digest() string
}

// Algo is an index into the table of registered hash algorithms.
type Algo uint8

const (
	SHA256 Algo = iota
	SHA512
	SHA3_512
	MD5
	SHA1
	FNV1A64
	FNV1A128
	CRC32
	CRC64
	ADLER32
)

// count must track the number of Algo constants above.
const count = 10

// Default is the hash algorithm used when a caller does not request one
// explicitly. SHA-256 matches the reference implementation's database layer.
const Default = SHA256

// Instance returns a fresh Algorithm for the given Algo index.
func (a Algo) Instance() Algorithm {
	switch a {
	case SHA256:
		return NewSHA256()
	case SHA512:
		return NewSHA512()
	case SHA3_512:
		return NewSHA3_512()
	case MD5:
		return NewMD5()
	case SHA1:
		return NewSHA1()
	case FNV1A64:
		return NewFNV1a64()
	case FNV1A128:
		return NewFNV1a128()
	case CRC32:
		return NewCRC32()
	case CRC64:
		return NewCRC64()
	case ADLER32:
		return NewAdler32()
	}
	return Default.Instance()
}

// FromString resolves an Algo by its registered name.
func FromString(name string) (Algo, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i := Algo(0); int(i) < count; i++ {
		if i.Instance().Name() == name {
			return i, nil
		}
	}
	return Default, fmt.Errorf("digest: unknown hash algorithm %q", name)
}

// Names lists the canonical names of every registered algorithm.
func Names() []string {
	names := make([]string, count)
	for i := Algo(0); int(i) < count; i++ {
		names[i] = i.Instance().Name()
	}
	return names
}

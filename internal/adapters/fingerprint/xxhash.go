// Package fingerprint implements the content digests used for change
// detection, backed by xxhash64.
package fingerprint

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/mallard/internal/core/domain"
	"go.trai.ch/mallard/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Fingerprinter = (*XXHash)(nil)

// XXHash implements ports.Fingerprinter with xxhash64 digests rendered as
// 16 hex digits.
type XXHash struct{}

// New creates a new XXHash fingerprinter.
func New() *XXHash {
	return &XXHash{}
}

// Bytes fingerprints a byte slice.
func (x *XXHash) Bytes(b []byte) domain.Fingerprint {
	return render(xxhash.Sum64(b))
}

// File fingerprints a file's content.
func (x *XXHash) File(path string) (domain.Fingerprint, error) {
	f, err := os.Open(path) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to hash file content"), "path", path)
	}

	return render(hasher.Sum64()), nil
}

// Record fingerprints a sequence of parts with length-prefixed framing so
// part boundaries are unambiguous.
func (x *XXHash) Record(parts ...[]byte) domain.Fingerprint {
	hasher := xxhash.New()
	var prefix [8]byte
	for _, part := range parts {
		binary.LittleEndian.PutUint64(prefix[:], uint64(len(part)))
		_, _ = hasher.Write(prefix[:])
		_, _ = hasher.Write(part)
	}
	return render(hasher.Sum64())
}

func render(sum uint64) domain.Fingerprint {
	return domain.Fingerprint(fmt.Sprintf("%016x", sum))
}

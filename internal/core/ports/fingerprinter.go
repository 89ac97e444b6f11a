package ports

import "go.trai.ch/mallard/internal/core/domain"

// Fingerprinter computes the fixed-size digests used for change detection.
// The algorithm is chosen at construction time; identical content must yield
// an identical fingerprint across runs.
//
//go:generate go run go.uber.org/mock/mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Bytes fingerprints a byte slice.
	Bytes(b []byte) domain.Fingerprint

	// File fingerprints a file's content.
	File(path string) (domain.Fingerprint, error)

	// Record fingerprints a sequence of parts with length-prefixed framing,
	// so that ("ab","c") and ("a","bc") differ.
	Record(parts ...[]byte) domain.Fingerprint
}

package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math/bits"
	"os"
	"strconv"

	"github.com/corona10/goimagehash"
)

// StrongHash computes the SHA-256 of a stream, hex encoded. It is the
// identity of a cached asset: byte-identical files always collide.
func StrongHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func StrongHashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func StrongHashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return StrongHash(f)
}

// PerceptualHash computes a 64-bit pHash of a decoded image, stored as
// 16 hex characters.
func PerceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return "", fmt.Errorf("perceptual hash: %w", err)
	}
	return fmt.Sprintf("%016x", hash.GetHash()), nil
}

// PerceptualHashBytes decodes an image payload and hashes it. Returns
// an error for payloads that are not decodable images.
func PerceptualHashBytes(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return PerceptualHash(img)
}

// Distance returns the Hamming distance between two stored perceptual
// hashes, or an error if either is malformed.
func Distance(a, b string) (int, error) {
	va, err := strconv.ParseUint(a, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", a, err)
	}
	vb, err := strconv.ParseUint(b, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", b, err)
	}
	return bits.OnesCount64(va ^ vb), nil
}

// IsNearDuplicate reports whether two perceptual hashes are within
// maxDistance bits of each other. Malformed hashes never match.
func IsNearDuplicate(a, b string, maxDistance int) bool {
	d, err := Distance(a, b)
	if err != nil {
		return false
	}
	return d <= maxDistance
}

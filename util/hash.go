package util

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// GenerateNodeID creates a deterministic hash for a graph node based on the
// archive fingerprint and method key.
func GenerateNodeID(archive, methodKey string) string {
	input := fmt.Sprintf("%s:%s", archive, methodKey)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// ArchiveFingerprint hashes an archive's content so analyses of the same
// bytes map to the same stored graph regardless of file path.
func ArchiveFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash archive: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

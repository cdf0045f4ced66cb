// file: internal/fileops/hash.go
// version: 2.0.0
// guid: 0a1b2c3d-4e5f-6a7b-8c9d-0e1f2a3b4c5d

// Package fileops holds small file helpers shared by the importer and the
// organizer. Every helper takes an afero.Fs so tests can run in memory.
package fileops

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/spf13/afero"
)

// ComputeFileHash computes the SHA256 hash of a file
func ComputeFileHash(fs afero.Fs, filePath string) (string, error) {
	file, err := fs.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// GetFileSize returns the size of a file in bytes
func GetFileSize(fs afero.Fs, filePath string) (int64, error) {
	info, err := fs.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

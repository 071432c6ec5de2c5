// Package filestore handles file payload I/O and path resolution.
// Files live under file_dir/propositions/<file_id><extension>
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Store writes and reads file payloads under a base directory.
type Store struct {
	Dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{Dir: dir}
}

// RelativePath returns the relative path for a stored file.
// Relative to the base dir, e.g., propositions/<file_id><extension>
func RelativePath(fileID, extension string) string {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return filepath.Join("propositions", fileID+extension)
}

// AbsolutePath returns the absolute path for a stored file.
func (s *Store) AbsolutePath(relativePath string) string {
	return filepath.Join(s.Dir, relativePath)
}

// WriteBuffer writes a payload to its relative path, creating parent
// directories as needed. Returns the payload's sha256 checksum.
func (s *Store) WriteBuffer(relativePath string, data []byte) (string, error) {
	absPath := s.AbsolutePath(relativePath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create file directory: %w", err)
	}
	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ReadBuffer reads a payload back from its relative path.
func (s *Store) ReadBuffer(relativePath string) ([]byte, error) {
	data, err := os.ReadFile(s.AbsolutePath(relativePath))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// DeleteFile removes a stored payload. Missing files are not an error.
func (s *Store) DeleteFile(relativePath string) error {
	if err := os.Remove(s.AbsolutePath(relativePath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// DetectMimeType attempts to detect MIME type from filename extension.
// Falls back to application/octet-stream if unknown.
func DetectMimeType(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "application/octet-stream"
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		return "application/octet-stream"
	}

	// Strip parameters like charset
	if idx := strings.IndexByte(mimeType, ';'); idx != -1 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}

	return mimeType
}

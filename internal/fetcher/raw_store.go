package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
)

// RawStore keeps fetched provider records as content-addressed files.
type RawStore struct {
	dir string
}

func NewRawStore(dir string) *RawStore {
	return &RawStore{dir: dir}
}

// Store writes raw under <dir>/<source>/<sha256>.json and returns the path.
// Identical content is written once.
func (s *RawStore) Store(source string, raw []byte) (string, error) {
	hashBytes := sha256.Sum256(raw)
	hash := hex.EncodeToString(hashBytes[:])

	dir := filepath.Join(s.dir, source)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	rawPath := filepath.Join(dir, hash+".json")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, raw, 0o644); err != nil {
			return "", err
		}
	}
	return rawPath, nil
}

func (s *RawStore) Load(ref string) ([]byte, error) {
	return os.ReadFile(ref)
}

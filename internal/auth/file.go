package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DanixMP/Azmooneh/internal/model"
)

// ErrNotLoggedIn is returned when no token file exists.
var ErrNotLoggedIn = errors.New("not logged in")

// SaveFile writes the login result to path, readable only by the owner.
func SaveFile(path string, pair model.TokenPair) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// LoadFile reads a login result written by SaveFile.
func LoadFile(path string) (model.TokenPair, error) {
	var pair model.TokenPair
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pair, ErrNotLoggedIn
		}
		return pair, fmt.Errorf("read token file: %w", err)
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return pair, fmt.Errorf("decode token file: %w", err)
	}
	if pair.Access == "" && pair.Refresh == "" {
		return pair, ErrNotLoggedIn
	}
	return pair, nil
}

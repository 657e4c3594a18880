package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// ErrNoAPIKeys is returned when neither the keys file nor the environment
// supplies a key. Callers treat it as fatal.
var ErrNoAPIKeys = errors.New("no api keys found")

// KeySource tells where the loaded keys came from.
type KeySource string

const (
	KeySourceFile KeySource = "file"
	KeySourceEnv  KeySource = "env"
)

// LoadAPIKeys reads one key per line from the configured file. When the
// file does not exist it falls back to a single key from the environment.
// An existing file without keys is an error and does not fall back.
func LoadAPIKeys(cfg APIConfig) ([]string, KeySource, error) {
	keys, err := readKeysFile(cfg.KeysFile)
	switch {
	case err == nil && len(keys) == 0:
		return nil, "", fmt.Errorf("%w in %s", ErrNoAPIKeys, cfg.KeysFile)
	case err == nil:
		return keys, KeySourceFile, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, "", fmt.Errorf("read keys file %s: %w", cfg.KeysFile, err)
	}

	if cfg.KeyEnv != "" {
		if v := strings.TrimSpace(os.Getenv(cfg.KeyEnv)); v != "" {
			return []string{v}, KeySourceEnv, nil
		}
	}
	return nil, "", fmt.Errorf("%w in file %s or environment variable %s", ErrNoAPIKeys, cfg.KeysFile, cfg.KeyEnv)
}

func readKeysFile(path string) ([]string, error) {
	if path == "" {
		return nil, fs.ErrNotExist
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			keys = append(keys, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

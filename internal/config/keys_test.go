package config

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadAPIKeysFromFile(t *testing.T) {
	path := writeFile(t, "keys.txt", "alpha\n\n  beta  \ngamma\n")
	t.Setenv("RECORDSYNC_TEST_KEY", "ignored")

	keys, source, err := LoadAPIKeys(APIConfig{KeysFile: path, KeyEnv: "RECORDSYNC_TEST_KEY"})
	if err != nil {
		t.Fatalf("LoadAPIKeys: %v", err)
	}
	if source != KeySourceFile {
		t.Fatalf("unexpected source %s", source)
	}
	if want := []string{"alpha", "beta", "gamma"}; !reflect.DeepEqual(keys, want) {
		t.Fatalf("got %v, want %v", keys, want)
	}
}

func TestLoadAPIKeysFallsBackToEnv(t *testing.T) {
	t.Setenv("RECORDSYNC_TEST_KEY", " env-key ")

	keys, source, err := LoadAPIKeys(APIConfig{
		KeysFile: filepath.Join(t.TempDir(), "missing.txt"),
		KeyEnv:   "RECORDSYNC_TEST_KEY",
	})
	if err != nil {
		t.Fatalf("LoadAPIKeys: %v", err)
	}
	if source != KeySourceEnv || len(keys) != 1 || keys[0] != "env-key" {
		t.Fatalf("unexpected result %v from %s", keys, source)
	}
}

func TestLoadAPIKeysNoneFound(t *testing.T) {
	t.Setenv("RECORDSYNC_TEST_KEY", "")

	_, _, err := LoadAPIKeys(APIConfig{
		KeysFile: filepath.Join(t.TempDir(), "missing.txt"),
		KeyEnv:   "RECORDSYNC_TEST_KEY",
	})
	if !errors.Is(err, ErrNoAPIKeys) {
		t.Fatalf("expected ErrNoAPIKeys, got %v", err)
	}
}

func TestLoadAPIKeysEmptyFileIsFatal(t *testing.T) {
	path := writeFile(t, "keys.txt", "\n   \n")
	t.Setenv("RECORDSYNC_TEST_KEY", "would-be-fallback")

	_, _, err := LoadAPIKeys(APIConfig{KeysFile: path, KeyEnv: "RECORDSYNC_TEST_KEY"})
	if !errors.Is(err, ErrNoAPIKeys) {
		t.Fatalf("expected ErrNoAPIKeys, got %v", err)
	}
}

package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateSeedBlobMissingFile(t *testing.T) {
	if err := validateSeedBlob(filepath.Join(t.TempDir(), "missing.tar.gz")); err == nil {
		t.Error("expected error for missing seed blob")
	}
}

func TestValidateSeedBlobUnreachablePath(t *testing.T) {
	// a regular file as a parent path component makes Stat fail with an error
	// that is not IsNotExist; this must surface as an error, not a panic
	plain := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(plain, []byte("seed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := validateSeedBlob(filepath.Join(plain, "child.tar.gz")); err == nil {
		t.Error("expected error for a path under a regular file")
	}
}

func TestValidateSeedBlobEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.tar.gz")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if err := validateSeedBlob(path); err == nil {
		t.Error("expected error for empty seed blob")
	}
}

func TestValidateSeedBlobRejectsPlainContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seeds.tar.gz")
	if err := os.WriteFile(path, []byte("not a tarball"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := validateSeedBlob(path); err == nil {
		t.Error("expected error for non-gzip seed blob")
	}
}

package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "seed.txt")
	dst := filepath.Join(dir, "nested", "seed-copy.txt")

	if err := os.WriteFile(src, []byte("setValue(42)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile() error: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "setValue(42)\n" {
		t.Errorf("copied content = %q", got)
	}
}

func TestCopyFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CopyFile(filepath.Join(dir, "missing"), filepath.Join(dir, "out")); err == nil {
		t.Error("expected error copying a missing file")
	}
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	if err := os.MkdirAll(filepath.Join(src, "corpus"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "corpus", "seed1"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "contract.sol"), []byte("contract C {}"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := CopyDir(src, dst); err != nil {
		t.Fatalf("CopyDir() error: %v", err)
	}

	for _, rel := range []string{"corpus/seed1", "contract.sol"} {
		if _, err := os.Stat(filepath.Join(dst, rel)); err != nil {
			t.Errorf("missing %s after CopyDir: %v", rel, err)
		}
	}
}

func TestIsTarGz(t *testing.T) {
	dir := t.TempDir()

	notTar := filepath.Join(dir, "plain.txt")
	if err := os.WriteFile(notTar, []byte("not a tarball"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsTarGz(notTar) {
		t.Error("IsTarGz() accepted a plain text file")
	}
	if IsTarGz(filepath.Join(dir, "missing.tar.gz")) {
		t.Error("IsTarGz() accepted a missing file")
	}
}

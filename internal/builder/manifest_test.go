package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
)

func testJobBuilder() *JobBuilder {
	return &JobBuilder{logger: zap.NewNop()}
}

func TestLoadManifestDefaultsWhenMissing(t *testing.T) {
	manifest, err := testJobBuilder().LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("LoadManifest() error: %v", err)
	}

	if diff := cmp.Diff([]string{"assertion", "property"}, manifest.Checks); diff != "" {
		t.Errorf("Checks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"echidna"}, manifest.Engines); diff != "" {
		t.Errorf("Engines mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadManifestReadsCampaignYaml(t *testing.T) {
	dir := t.TempDir()
	content := `
solc: "0.8.24"
checks:
  - property
engines:
  - echidna
  - medusa
test_limit: 1000
seq_len: 10
`
	if err := os.WriteFile(filepath.Join(dir, "campaign.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	manifest, err := testJobBuilder().LoadManifest(dir)
	if err != nil {
		t.Fatalf("LoadManifest() error: %v", err)
	}

	want := &CampaignManifest{
		Solc:      "0.8.24",
		Checks:    []string{"property"},
		Engines:   []string{"echidna", "medusa"},
		TestLimit: 1000,
		SeqLen:    10,
	}
	if diff := cmp.Diff(want, manifest); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadManifestRejectsMalformedYaml(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "campaign.yaml"), []byte("checks: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := testJobBuilder().LoadManifest(dir); err == nil {
		t.Error("expected error for malformed campaign.yaml")
	}
}

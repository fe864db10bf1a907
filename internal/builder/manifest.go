package builder

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// CampaignManifest is the optional campaign.yaml placed next to a contract
// source. Absent fields fall back to defaults.
type CampaignManifest struct {
	Solc      string   `yaml:"solc"`       // compiler version hint
	Checks    []string `yaml:"checks"`     // assertion | property | overflow
	Engines   []string `yaml:"engines"`    // fuzz engines to schedule
	TestLimit int      `yaml:"test_limit"` // overrides the configured default
	SeqLen    int      `yaml:"seq_len"`
}

func defaultManifest() *CampaignManifest {
	return &CampaignManifest{
		Checks:  []string{"assertion", "property"},
		Engines: []string{"echidna"},
	}
}

// LoadManifest reads campaign.yaml from the directory holding the contract
// source. A missing file yields the defaults; a malformed one is an error.
func (b *JobBuilder) LoadManifest(sourceDir string) (*CampaignManifest, error) {
	manifestPath := filepath.Join(sourceDir, "campaign.yaml")
	content, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultManifest(), nil
		}
		b.logger.Error("Failed to read campaign.yaml", zap.String("path", manifestPath), zap.Error(err))
		return nil, err
	}

	var manifest CampaignManifest
	if err := yaml.Unmarshal(content, &manifest); err != nil {
		b.logger.Error("Failed to parse campaign.yaml", zap.String("path", manifestPath), zap.Error(err))
		return nil, err
	}

	if len(manifest.Checks) == 0 {
		manifest.Checks = defaultManifest().Checks
	}
	if len(manifest.Engines) == 0 {
		manifest.Engines = defaultManifest().Engines
	}

	return &manifest, nil
}

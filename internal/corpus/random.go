package corpus

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"
	"path"
)

type RandomSeedGrabber struct{}

func NewRandomSeedGrabber() *RandomSeedGrabber {
	return &RandomSeedGrabber{}
}

// generateRandomSeeds writes a handful of single-call sequences with random
// arguments so a fresh campaign never starts from an empty corpus.
func generateRandomSeeds(campaignId, contract string) (string, error) {
	seedFolder := path.Join("/tmp/solfuzz/fakeseeds", campaignId, contract)
	tarFilePath := path.Join("/tmp/solfuzz/fakeseeds", fmt.Sprintf("%s_%s_seeds.tar.gz", campaignId, contract))

	// Create the seed folder
	if err := os.MkdirAll(seedFolder, 0755); err != nil {
		return "", err
	}

	// Generate random single-call seed files
	for i := range 30 {
		seedFilePath := path.Join(seedFolder, fmt.Sprintf("seed%d.txt", i))
		var raw [8]byte
		if _, err := rand.Read(raw[:]); err != nil {
			return "", err
		}
		seedData := fmt.Sprintf("setValue(%d)\n", binary.BigEndian.Uint64(raw[:]))
		if err := os.WriteFile(seedFilePath, []byte(seedData), 0644); err != nil {
			return "", err
		}
	}

	// Create a tar file containing the seeds
	cmd := exec.Command("tar", "-czf", tarFilePath, "-C", seedFolder, ".")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to create tar file: %w", err)
	}

	return tarFilePath, nil
}

func (s *RandomSeedGrabber) GrabCorpusBlob(campaignId, contract string) (string, error) {
	// Generate fallback seeds and return the path to the tar file
	return generateRandomSeeds(campaignId, contract)
}

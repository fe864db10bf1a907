package types

// small, self-contained fuzzing unit: one contract, one check, one engine
type Campaign struct {
	CampaignId   string `json:"campaign_id"`
	Contract     string `json:"contract"` // contract name inside the artifact
	Check        string `json:"check"`    // assertion | property | overflow
	FuzzEngine   string `json:"fuzz_engine"`
	ArtifactPath string `json:"artifact_path"`
}

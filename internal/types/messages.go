package types

type FindingMessage struct {
	ReproducerFile string // path to the reproducer file on local filesystem
	Campaign       *Campaign
}

type CorpusMessage struct {
	SeedFile string
	Campaign *Campaign
}

type CorpusBundleMessage struct {
	CampaignId   string `json:"campaign_id"`
	Contract     string `json:"contract"`
	SeedBlobPath string `json:"seeds"`
}

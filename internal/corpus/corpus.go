package corpus

import (
	"go.uber.org/fx"
)

type Grabber interface {
	// grab the seeds for given (campaign id, contract) pair. It should always return a path to a tar.gz file
	GrabCorpusBlob(campaignId, contract string) (string, error)
}

var CorpusGrabbersModule = fx.Options(
	fx.Provide(NewCorpusGrabber),
	fx.Provide(NewRedisSeedGrabber),
	fx.Provide(NewRandomSeedGrabber),
	fx.Provide(NewDBSeedGrabber),
)

package fuzz

import (
	"context"
	"time"

	"solfuzz/internal/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// MedusaFuzzer is a placeholder for the medusa engine. The constructor
// returns nil until the engine integration lands; the runner skips nil
// fuzzers when building its engine map.
type MedusaFuzzer struct {
	logger *zap.Logger
}

func NewMedusaFuzzer(logger *zap.Logger) *MedusaFuzzer {
	return nil
}

func (m *MedusaFuzzer) RunFuzz(ctx context.Context, campaign *types.Campaign, timeout time.Duration) (FuzzerHandler, error) {
	return nil, nil
}

func (m *MedusaFuzzer) SupportedEngines() []string {
	return []string{"medusa"}
}

var MedusaModule = fx.Options(
	fx.Provide(
		fx.Annotate(
			NewMedusaFuzzer,
			fx.As(new(Fuzzer)),
			fx.ResultTags(`group:"fuzzers"`),
		),
	),
)

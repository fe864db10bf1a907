package fuzz

import (
	"context"
	"time"

	"solfuzz/internal/types"
)

// Fuzzer describes the interface for different fuzzing engines
type Fuzzer interface {
	// Run the fuzzer over the given campaign.
	//
	// Fuzzing is expected to finish *before* the timeout.
	// If not, fuzzing must be killed when the context is done.
	// Related resources in FuzzerHandler should also be closed.
	RunFuzz(ctx context.Context, campaign *types.Campaign, timeout time.Duration) (FuzzerHandler, error)
	SupportedEngines() []string
}

// FuzzerHandler describes the interface for managing fuzzing instances and handling fuzzing results.
type FuzzerHandler interface {
	// return two channels for new findings / corpus seeds.
	// The channel is owned by the handler, and will be closed when
	// (1) it is believed no more findings or seeds will show up, or
	// (2) context passed to RunFuzz is done.
	ConsumeFindings() (<-chan types.FindingMessage, error)
	ConsumeCorpus() (<-chan types.CorpusMessage, error)

	// blocks until
	// (1) it is believed all fuzzing resources are properly shutdown, or
	// (2) context passed to RunFuzz is done.
	BlockUntilFinished()
}

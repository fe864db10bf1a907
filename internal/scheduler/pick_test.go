package scheduler

import (
	"math"
	"testing"
	"time"

	"solfuzz/internal/types"
)

func TestBalanceSumsToOne(t *testing.T) {
	scores := []float64{1, 2, 3, 4}
	balanced := balance(scores)

	sum := 0.0
	for _, s := range balanced {
		sum += s
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("balanced scores sum to %f, want 1", sum)
	}
	// relative order must survive normalization
	for i := 1; i < len(balanced); i++ {
		if balanced[i] <= balanced[i-1] {
			t.Errorf("balance() broke ordering at index %d: %v", i, balanced)
		}
	}
}

func TestJobFactorPenalizesSiblings(t *testing.T) {
	campaigns := []*types.Campaign{
		{CampaignId: "job-a", Check: "assertion", FuzzEngine: "echidna"},
		{CampaignId: "job-a", Check: "property", FuzzEngine: "echidna"},
		{CampaignId: "job-b", Check: "assertion", FuzzEngine: "echidna"},
	}

	scores := (&JobFactor{}).Score(campaigns)
	if scores[0] != 0.5 || scores[1] != 0.5 {
		t.Errorf("campaigns sharing a job scored %v and %v, want 0.5 each", scores[0], scores[1])
	}
	if scores[2] != 1.0 {
		t.Errorf("lone campaign scored %v, want 1", scores[2])
	}
}

func TestCheckFactorPrefersAssertions(t *testing.T) {
	campaigns := []*types.Campaign{
		{CampaignId: "a", Check: "assertion"},
		{CampaignId: "b", Check: "property"},
		{CampaignId: "c", Check: "overflow"},
		{CampaignId: "d", Check: "something_else"},
	}

	scores := (&CheckFactor{}).Score(campaigns)
	if !(scores[0] > scores[1] && scores[1] > scores[2]) {
		t.Errorf("check factor ordering wrong: %v", scores)
	}
	if scores[3] != scores[2] {
		t.Errorf("unknown check scored %v, want default %v", scores[3], scores[2])
	}
}

func TestPickAlwaysReturnsACampaign(t *testing.T) {
	campaigns := []*types.Campaign{
		{CampaignId: "job-a", Check: "assertion", FuzzEngine: "echidna"},
		{CampaignId: "job-b", Check: "property", FuzzEngine: "echidna"},
	}
	p := NewPicker(10 * time.Minute)

	for range 100 {
		campaign, timeout := p.pick(campaigns)
		if campaign == nil {
			t.Fatal("pick() returned nil campaign")
		}
		if timeout != 10*time.Minute {
			t.Fatalf("pick() timeout = %v, want 10m", timeout)
		}
	}
}

package scheduler

import "solfuzz/internal/types"

// JobFactor takes the originating job into account.
// A job can fan out into many campaigns (one per check and engine), but we
// want findings balanced across jobs, so a campaign sharing its id with many
// siblings scores lower.
type JobFactor struct{}

func (jf *JobFactor) Score(campaigns []*types.Campaign) []float64 {
	// group campaigns by id
	campaignsByJob := make(map[string][]*types.Campaign)
	for _, campaign := range campaigns {
		campaignsByJob[campaign.CampaignId] = append(campaignsByJob[campaign.CampaignId], campaign)
	}

	score := make([]float64, len(campaigns))
	// calculate score for each campaign based on the number of siblings
	for idx, campaign := range campaigns {
		siblings := len(campaignsByJob[campaign.CampaignId])
		if siblings == 0 {
			// this campaign is not in any job, so we give it a score of 0
			// this should not happen, but just in case
			score[idx] = 0
		}
		score[idx] = 1 / float64(siblings)
	}

	return score
}

// CheckFactor takes the check type into account.
// Assertion checks surface real bugs most often; property and overflow
// checks matter less per unit of fuzzing time.
type CheckFactor struct{}

func (cf *CheckFactor) Score(campaigns []*types.Campaign) []float64 {
	score := make([]float64, len(campaigns))
	for idx, campaign := range campaigns {
		switch campaign.Check {
		case "assertion":
			score[idx] = 5
		case "property":
			score[idx] = 2
		case "overflow":
			score[idx] = 1
		default:
			score[idx] = 1
		}
	}
	return score
}

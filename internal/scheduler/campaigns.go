package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"solfuzz/internal/types"

	"go.uber.org/zap"
)

const (
	CampaignsKey     = "solfuzz:campaigns"
	JobStatusKeyTmpl = "global:job_status:%s" // global:job_status:<job_id> --> processing | canceled
)

// grab new campaigns from redis, and check job status
func (s *Scheduler) getCampaigns(ctx context.Context) ([]*types.Campaign, error) {
	s.logger.Debug("getting campaigns from redis")
	campaignJSONs, err := s.redisClient.SMembers(ctx, CampaignsKey).Result()
	if err != nil {
		return nil, err
	}

	campaigns := make([]*types.Campaign, 0, len(campaignJSONs))

	for _, campaignJSON := range campaignJSONs {
		campaign := &types.Campaign{}
		if err := json.Unmarshal([]byte(campaignJSON), &campaign); err != nil {
			return nil, err
		}

		logger := s.logger.With(zap.String("campaign_id", campaign.CampaignId))

		jobStatusKey := fmt.Sprintf(JobStatusKeyTmpl, campaign.CampaignId)
		status, err := s.redisClient.Get(ctx, jobStatusKey).Result()
		// skip if job is not in status list
		if status != "processing" {

			// remove campaign from redis (only when status is "canceled")
			if status == "canceled" {
				if err := s.redisClient.SRem(ctx, CampaignsKey, campaignJSON).Err(); err != nil {
					logger.Error("failed to remove campaign from redis", zap.Error(err))
				}
			} else {
				logger.Error("failed to get job status, skipping", zap.Error(err))
			}

			continue
		}

		campaigns = append(campaigns, campaign)
	}
	s.logger.Info("got campaigns from redis", zap.Int("count", len(campaigns)))
	return campaigns, nil
}

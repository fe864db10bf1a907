package builder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"solfuzz/internal/contract"
	"solfuzz/internal/scheduler"
	"solfuzz/internal/types"
	"solfuzz/internal/utils"

	"go.uber.org/zap"
)

const (
	ArtifactRedisKey           = "artifacts:%s:%s:after"    // artifacts:<campaign_id>:<contract>:after
	ArtifactContractRedisKey   = "artifacts:%s:contracts"   // artifacts:<campaign_id>:contracts --> [ contract1, contract2, ... ]
	DictRedisKey               = "artifacts:%s:%s:dicts"    // artifacts:<campaign_id>:<contract>:dicts
	FuzzingArtifactStoragePath = "/var/lib/solfuzz/artifacts/"
)

// upload the artifact to the shared storage folder
// returns the path to the uploaded artifact
func (b *JobBuilder) upload(campaignId string, contractName string, kind string, artifactPath string) (string, error) {
	artifactFolder := filepath.Join(FuzzingArtifactStoragePath, campaignId, contractName, kind)
	if err := os.MkdirAll(artifactFolder, 0755); err != nil {
		b.logger.Error("Failed to create artifact folder", zap.String("path", artifactFolder), zap.Error(err))
		return "", fmt.Errorf("failed to create artifact folder: %w", err)
	}

	uploadPath := filepath.Join(artifactFolder, filepath.Base(artifactPath))
	if err := utils.CopyFile(artifactPath, uploadPath); err != nil {
		b.logger.Error("Failed to copy artifact file", zap.String("src", artifactPath), zap.String("dst", uploadPath), zap.Error(err))
		return "", fmt.Errorf("failed to copy artifact file: %w", err)
	}

	return uploadPath, nil
}

// store the artifact path in Redis
func (b *JobBuilder) record(ctx context.Context, campaignId string, contractName string, artifactPath string) error {
	// artifacts:<campaign_id>:<contract>:after
	key := fmt.Sprintf(ArtifactRedisKey, campaignId, contractName)
	if err := b.redisClient.Set(ctx, key, artifactPath, 0).Err(); err != nil {
		b.logger.Error("Failed to set artifact path in Redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to set artifact path in Redis: %w", err)
	}
	b.logger.Info("Artifact path set in Redis", zap.String("key", key), zap.String("path", artifactPath))
	return nil
}

// create a new campaign in Redis
func (b *JobBuilder) addCampaign(ctx context.Context, campaignId string, contractName string, check string, engine string, artifactPath string) error {
	campaign := types.Campaign{
		CampaignId:   campaignId,
		Contract:     contractName,
		Check:        check,
		FuzzEngine:   engine,
		ArtifactPath: artifactPath,
	}

	campaignJSON, err := json.Marshal(campaign)
	if err != nil {
		b.logger.Error("Failed to marshal campaign", zap.Error(err))
		return errors.New("failed to marshal campaign")
	}

	b.redisClient.SAdd(ctx, scheduler.CampaignsKey, campaignJSON)

	return nil
}

func (b *JobBuilder) updateContractList(ctx context.Context, campaignId string, contractName string) error {
	// artifacts:<campaign_id>:contracts --> { contract1, contract2, ... }
	key := fmt.Sprintf(ArtifactContractRedisKey, campaignId)
	if err := b.redisClient.SAdd(ctx, key, contractName).Err(); err != nil {
		b.logger.Error("Failed to add contract to Redis", zap.String("key", key), zap.String("contract", contractName), zap.Error(err))
		return fmt.Errorf("failed to add contract to Redis: %w", err)
	}
	return nil
}

// upload the artifact to the shared folder, and sync with Redis
func (b *JobBuilder) uploadArtifact(ctx context.Context, campaignId string, artifact *Artifact) (string, error) {
	uploadPath, err := b.upload(campaignId, artifact.Contract, "build", artifact.Path)
	if err != nil {
		b.logger.Error("Failed to upload artifact", zap.String("contract", artifact.Contract), zap.Error(err))
		return "", err
	}
	b.record(ctx, campaignId, artifact.Contract, uploadPath)

	b.logger.Info("Finish uploading artifact and synced with Redis",
		zap.String("campaignID", campaignId),
		zap.String("contract", artifact.Contract))

	return uploadPath, nil
}

// uploadDict writes the mutation dictionary (function signatures plus mined
// source constants) to the shared folder, and syncs it with Redis
func (b *JobBuilder) uploadDict(ctx context.Context, campaignId string, artifact *Artifact, src contract.Source) (string, error) {
	entries := append([]string{}, artifact.Signatures...)
	entries = append(entries, sourceConstants(src)...)
	if len(entries) == 0 {
		return "", errors.New("nothing to put in the dictionary")
	}

	dictPath := filepath.Join(b.localDir, fmt.Sprintf("%s_%s.dict", campaignId, artifact.Contract))
	if err := os.WriteFile(dictPath, []byte(strings.Join(entries, "\n")+"\n"), 0644); err != nil {
		return "", fmt.Errorf("failed to write dict file: %w", err)
	}

	uploadPath, err := b.upload(campaignId, artifact.Contract, "dict", dictPath)
	if err != nil {
		b.logger.Error("Failed to upload dict", zap.String("contract", artifact.Contract), zap.Error(err))
		return "", err
	}

	key := fmt.Sprintf(DictRedisKey, campaignId, artifact.Contract)
	if err := b.redisClient.SAdd(ctx, key, uploadPath).Err(); err != nil {
		b.logger.Error("Failed to add dict path to Redis", zap.String("key", key),
			zap.String("path", uploadPath), zap.Error(err))
		return "", fmt.Errorf("failed to add dict path to Redis: %w", err)
	}

	b.logger.Info("Finish uploading dict and synced with Redis",
		zap.String("campaignID", campaignId),
		zap.String("contract", artifact.Contract),
		zap.String("dictPath", uploadPath))
	return uploadPath, nil
}

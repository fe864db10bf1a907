package database

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// inserts multiple finding records into the database
func AddFindings(ctx context.Context, db *gorm.DB, findings []*Finding) error {
	if len(findings) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(findings).Error
}

// NewFinding creates a new Finding object with the provided parameters
func NewFinding(
	campaignID string,
	reproducer string,
	contract string,
	check string,
) *Finding {
	return &Finding{
		CampaignID: campaignID,
		CreatedAt:  time.Now(),
		Reproducer: reproducer,
		Contract:   contract,
		Check:      check,
	}
}

// inserts a single corpus record into the database
func AddCorpusEntry(ctx context.Context, db *gorm.DB, entry *CorpusEntry) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

// NewCorpusEntry creates a new CorpusEntry object with the provided parameters
func NewCorpusEntry(
	campaignID string,
	path string,
	contract string,
	check CheckTypeEnum,
	instance string,
	coverage float64,
	metric Metric,
) *CorpusEntry {
	return &CorpusEntry{
		CampaignID: campaignID,
		CreatedAt:  time.Now(),
		Path:       path,
		Contract:   contract,
		Check:      check,
		Instance:   instance,
		Coverage:   coverage,
		Metric:     metric,
	}
}

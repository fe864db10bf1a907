package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CheckTypeEnum represents the campaign check type enum in the database
type CheckTypeEnum string

const (
	AssertionCheck CheckTypeEnum = "assertion"
	PropertyCheck  CheckTypeEnum = "property"
	OverflowCheck  CheckTypeEnum = "overflow"
	CorpusReplay   CheckTypeEnum = "corpus"
)

// CorpusEntry represents a record in the public.corpus table.
// Each row points to one seed bundle (a tar.gz of call sequences).
type CorpusEntry struct {
	ID         int           `gorm:"primaryKey;column:id"`
	CampaignID string        `gorm:"column:campaign_id;not null"`
	CreatedAt  time.Time     `gorm:"column:created_at;default:now()"`
	Path       string        `gorm:"column:path"`
	Contract   string        `gorm:"column:contract"`
	Check      CheckTypeEnum `gorm:"column:check_type"`
	Instance   string        `gorm:"column:instance"`
	Coverage   float64       `gorm:"column:coverage"`
	Metric     Metric        `gorm:"column:metric;type:jsonb"`
}

// Finding represents a record in the public.findings table.
// A finding is one violated check together with its reproducer call sequence.
type Finding struct {
	ID         int       `gorm:"primaryKey;column:id"`
	CampaignID string    `gorm:"column:campaign_id;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	Reproducer string    `gorm:"column:reproducer;not null"`
	Contract   string    `gorm:"column:contract;not null"`
	Check      string    `gorm:"column:check_type;not null"`
}

// Metric represents the jsonb field in the corpus table
type Metric map[string]any

// Value implements the driver.Valuer interface for the Metric type
func (m Metric) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for the Metric type
func (m *Metric) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, &m)
}

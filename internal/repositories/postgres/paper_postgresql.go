package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prepdeck/cbe-service/internal/models"
	"github.com/prepdeck/cbe-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaperRecord is the papers table row. Question bodies are stored as one
// JSONB document: papers are immutable once loaded, so there is nothing to
// gain from normalizing questions into their own table.
type PaperRecord struct {
	ID              string         `gorm:"primaryKey;size:64"`
	Title           string         `gorm:"not null;size:200"`
	Code            string         `gorm:"not null;size:20;index"`
	DurationMinutes int            `gorm:"not null"`
	Questions       datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (PaperRecord) TableName() string {
	return "papers"
}

type PaperPostgreSQL struct {
	db *gorm.DB
}

func NewPaperPostgreSQL(db *gorm.DB) repositories.PaperRepository {
	return &PaperPostgreSQL{db: db}
}

// Migrate creates the papers table.
func (p *PaperPostgreSQL) Migrate() error {
	return p.db.AutoMigrate(&PaperRecord{})
}

func (p *PaperPostgreSQL) GetByID(ctx context.Context, id string) (*models.Paper, error) {
	var record PaperRecord
	err := p.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrFetch, err)
	}
	return recordToPaper(&record)
}

func (p *PaperPostgreSQL) List(ctx context.Context) ([]models.PaperSummary, error) {
	var records []PaperRecord
	if err := p.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", repositories.ErrFetch, err)
	}
	summaries := make([]models.PaperSummary, 0, len(records))
	for i := range records {
		paper, err := recordToPaper(&records[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, paper.Summary())
	}
	return summaries, nil
}

// Save upserts a paper definition (used by seeding and admin tooling).
func (p *PaperPostgreSQL) Save(ctx context.Context, paper *models.Paper) error {
	questions, err := json.Marshal(paper.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	record := PaperRecord{
		ID:              paper.ID,
		Title:           paper.Title,
		Code:            paper.Code,
		DurationMinutes: paper.DurationMinutes,
		Questions:       datatypes.JSON(questions),
	}
	if err := p.db.WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("failed to save paper %s: %w", paper.ID, err)
	}
	return nil
}

func recordToPaper(record *PaperRecord) (*models.Paper, error) {
	paper := &models.Paper{
		ID:              record.ID,
		Title:           record.Title,
		Code:            record.Code,
		DurationMinutes: record.DurationMinutes,
	}
	if err := json.Unmarshal(record.Questions, &paper.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions for paper %s: %w", record.ID, err)
	}
	return paper, nil
}

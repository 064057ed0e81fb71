package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/model"
)

const (
	// DefaultRecentRenderPassLimit bounds Recent when the caller passes a non-positive limit.
	DefaultRecentRenderPassLimit = 20
	maximumRecentRenderPassLimit = 200

	errorMessageNilDatabase      = "storage: nil database"
	errorMessageRecordRenderPass = "storage: record render pass"
	errorMessageListRenderPasses = "storage: list render passes"
	errorMessagePruneRenderPass  = "storage: prune render passes"
)

// ErrNilDatabase indicates a repository was built without a database.
var ErrNilDatabase = errors.New(errorMessageNilDatabase)

// RenderPassRepository stores and lists render pass records.
type RenderPassRepository struct {
	database *gorm.DB
}

// NewRenderPassRepository wraps a migrated database.
func NewRenderPassRepository(database *gorm.DB) (*RenderPassRepository, error) {
	if database == nil {
		return nil, ErrNilDatabase
	}
	return &RenderPassRepository{database: database}, nil
}

// RecordRenderPass inserts a record, assigning an id when it has none.
func (repository *RenderPassRepository) RecordRenderPass(ctx context.Context, renderPass *model.RenderPass) error {
	if renderPass.ID == "" {
		renderPass.ID = NewID()
	}
	if createErr := repository.database.WithContext(ctx).Create(renderPass).Error; createErr != nil {
		return fmt.Errorf("%s: %w", errorMessageRecordRenderPass, createErr)
	}
	return nil
}

// RecentRenderPasses lists the newest records first.
func (repository *RenderPassRepository) RecentRenderPasses(ctx context.Context, limit int) ([]model.RenderPass, error) {
	if limit <= 0 {
		limit = DefaultRecentRenderPassLimit
	}
	if limit > maximumRecentRenderPassLimit {
		limit = maximumRecentRenderPassLimit
	}
	renderPasses := make([]model.RenderPass, 0)
	queryErr := repository.database.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&renderPasses).Error
	if queryErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageListRenderPasses, queryErr)
	}
	return renderPasses, nil
}

// DeleteRenderPassesBefore removes records that started before cutoff and reports how many went.
func (repository *RenderPassRepository) DeleteRenderPassesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := repository.database.WithContext(ctx).
		Where("started_at < ?", cutoff).
		Delete(&model.RenderPass{})
	if result.Error != nil {
		return 0, fmt.Errorf("%s: %w", errorMessagePruneRenderPass, result.Error)
	}
	return result.RowsAffected, nil
}

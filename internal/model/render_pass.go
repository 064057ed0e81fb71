package model

import "time"

const (
	// RenderPassStatusIdle marks a pass rendered without activation.
	RenderPassStatusIdle = "idle"
	// RenderPassStatusSucceeded marks an activated pass that produced every section.
	RenderPassStatusSucceeded = "succeeded"
	// RenderPassStatusFailed marks an activated pass stopped by a failing stage.
	RenderPassStatusFailed = "failed"
)

// RenderPass records the outcome of one dashboard render pass. Dataset contents are never stored.
type RenderPass struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Activated      bool      `gorm:"not null" json:"activated"`
	Status         string    `gorm:"not null;size:16;index" json:"status"`
	FailureStage   string    `gorm:"size:32" json:"failure_stage,omitempty"`
	FailureMessage string    `gorm:"size:2000" json:"failure_message,omitempty"`
	Rows           int       `json:"rows"`
	Columns        int       `json:"columns"`
	StartedAt      time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt     time.Time `gorm:"not null" json:"finished_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Duration is the wall time the pass took.
func (renderPass RenderPass) Duration() time.Duration {
	if renderPass.FinishedAt.Before(renderPass.StartedAt) {
		return 0
	}
	return renderPass.FinishedAt.Sub(renderPass.StartedAt)
}

// Package dashboard runs render passes: page chrome, the sidebar trigger and, on activation,
// fetch, describe, profile and visualize.
package dashboard

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/charts"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dataset"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/profile"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/spreadsheet"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/stats"
)

const (
	PageTitle             = "Credit Card Dashboard"
	PageIcon              = "📊"
	PageLayoutWide        = "wide"
	SidebarStateCollapsed = "collapsed"
	Heading               = "Credit Card Data Dashboard"
	SidebarHeading        = "Eligible Data"
	TriggerLabel          = "Start Credit Card Analysis"
	IdleMessage           = "Click the button in the left sidebar to load and visualize the data."

	SectionSummaryStatistics = "Summary Statistics"
	SectionProfileReport     = "Profile Report"
	SectionVisualizations    = "Visualizations"

	// StageFetch and the stages below name the step a failed pass stopped at.
	StageFetch     = "fetch"
	StageDescribe  = "describe"
	StageProfile   = "profile"
	StageVisualize = "visualize"

	errorMessageMissingConnection = "dashboard: no spreadsheet connection"
)

// ErrMissingConnection indicates an activated pass without a spreadsheet connection.
var ErrMissingConnection = errors.New(errorMessageMissingConnection)

// Page carries the page-level settings of the dashboard.
type Page struct {
	Title        string `json:"title"`
	Icon         string `json:"icon"`
	Layout       string `json:"layout"`
	SidebarState string `json:"sidebar_state"`
}

// Sidebar describes the collapsed sidebar holding the load trigger.
type Sidebar struct {
	Heading      string `json:"heading"`
	Divider      bool   `json:"divider"`
	TriggerLabel string `json:"trigger_label"`
	Pressed      bool   `json:"pressed"`
}

// DatasetShape summarizes the loaded worksheet.
type DatasetShape struct {
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// Failure is the observable error of a stopped pass.
type Failure struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// RenderOutput is everything one render pass displays.
// Sections after a failed stage stay nil.
type RenderOutput struct {
	Page        Page            `json:"page"`
	Heading     string          `json:"heading"`
	Sidebar     Sidebar         `json:"sidebar"`
	Activated   bool            `json:"activated"`
	IdleMessage string          `json:"idle_message,omitempty"`
	Dataset     *DatasetShape   `json:"dataset,omitempty"`
	Statistics  *stats.Summary  `json:"statistics,omitempty"`
	Profile     *profile.Report `json:"profile,omitempty"`
	Charts      *charts.Set     `json:"charts,omitempty"`
	Images      *charts.Images  `json:"-"`
	Failure     *Failure        `json:"failure,omitempty"`
	PassID      string          `json:"pass_id,omitempty"`
}

// PassRecorder stores the outcome of every render pass.
type PassRecorder interface {
	RecordRenderPass(ctx context.Context, renderPass *model.RenderPass) error
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// Controller runs render passes. It holds no state that changes between passes.
type Controller struct {
	connection     spreadsheet.Connection
	renderer       *charts.Renderer
	logger         *zap.Logger
	recorder       PassRecorder
	secretsSection string
	now            func() time.Time
}

// NewController builds a Controller reading through connection.
func NewController(connection spreadsheet.Connection, renderer *charts.Renderer, logger *zap.Logger, options ...ControllerOption) *Controller {
	controller := &Controller{
		connection:     connection,
		renderer:       renderer,
		logger:         logger,
		secretsSection: config.DefaultSecretsSection,
		now:            time.Now,
	}
	if controller.renderer == nil {
		controller.renderer = charts.NewRenderer()
	}
	if controller.logger == nil {
		controller.logger = zap.NewNop()
	}
	for _, option := range options {
		if option != nil {
			option(controller)
		}
	}
	return controller
}

// WithPassRecorder stores every pass outcome through recorder.
func WithPassRecorder(recorder PassRecorder) ControllerOption {
	return func(controller *Controller) {
		controller.recorder = recorder
	}
}

// WithSecretsSection names the secret store section reported by configuration failures.
func WithSecretsSection(section string) ControllerOption {
	return func(controller *Controller) {
		if section != "" {
			controller.secretsSection = section
		}
	}
}

// WithClock replaces the wall clock used to time passes.
func WithClock(clock func() time.Time) ControllerOption {
	return func(controller *Controller) {
		if clock != nil {
			controller.now = clock
		}
	}
}

// Run performs one render pass. Without activation it only produces the page chrome and the idle message.
func (controller *Controller) Run(ctx context.Context, activated bool, sheet config.SheetConfig) RenderOutput {
	startedAt := controller.now()
	output := RenderOutput{
		Page: Page{
			Title:        PageTitle,
			Icon:         PageIcon,
			Layout:       PageLayoutWide,
			SidebarState: SidebarStateCollapsed,
		},
		Heading: Heading,
		Sidebar: Sidebar{
			Heading:      SidebarHeading,
			Divider:      true,
			TriggerLabel: TriggerLabel,
			Pressed:      activated,
		},
		Activated: activated,
	}

	if !activated {
		output.IdleMessage = IdleMessage
		controller.record(ctx, &output, startedAt)
		return output
	}

	controller.logger.Info("render_pass_started", zap.String("spreadsheet", sheet.SpreadsheetID), zap.String("worksheet", sheet.WorksheetID))
	controller.analyze(ctx, sheet, &output)
	controller.record(ctx, &output, startedAt)

	if output.Failure == nil {
		controller.logger.Info("render_pass_completed", zap.Duration("duration", controller.now().Sub(startedAt)), zap.Int("rows", output.Dataset.Rows))
	}
	return output
}

func (controller *Controller) analyze(ctx context.Context, sheet config.SheetConfig, output *RenderOutput) {
	stageStartedAt := controller.now()
	creditDataset, fetchErr := controller.fetch(ctx, sheet)
	if fetchErr != nil {
		controller.fail(output, StageFetch, fetchErr)
		return
	}
	output.Dataset = &DatasetShape{Rows: creditDataset.Rows(), Columns: creditDataset.Columns()}
	controller.logStage(StageFetch, stageStartedAt)

	stageStartedAt = controller.now()
	summary := stats.Describe(creditDataset)
	output.Statistics = &summary
	controller.logStage(StageDescribe, stageStartedAt)

	stageStartedAt = controller.now()
	report, profileErr := profile.Generate(creditDataset)
	if profileErr != nil {
		controller.fail(output, StageProfile, profileErr)
		return
	}
	output.Profile = report
	controller.logStage(StageProfile, stageStartedAt)

	stageStartedAt = controller.now()
	chartSet, buildErr := charts.Build(creditDataset)
	if buildErr != nil {
		controller.fail(output, StageVisualize, buildErr)
		return
	}
	images, renderErr := controller.renderer.RenderSet(chartSet)
	if renderErr != nil {
		controller.fail(output, StageVisualize, renderErr)
		return
	}
	output.Charts = &chartSet
	output.Images = &images
	controller.logStage(StageVisualize, stageStartedAt)
}

func (controller *Controller) fetch(ctx context.Context, sheet config.SheetConfig) (*dataset.Dataset, error) {
	if validateErr := sheet.Validate(controller.secretsSection); validateErr != nil {
		return nil, validateErr
	}
	if controller.connection == nil {
		return nil, ErrMissingConnection
	}
	return controller.connection.Read(ctx, sheet)
}

func (controller *Controller) fail(output *RenderOutput, stage string, stageErr error) {
	output.Failure = &Failure{Stage: stage, Message: stageErr.Error(), Err: stageErr}
	controller.logger.Error("render_pass_failed", zap.String("stage", stage), zap.Error(stageErr))
}

func (controller *Controller) logStage(stage string, startedAt time.Time) {
	controller.logger.Debug("render_pass_stage_completed", zap.String("stage", stage), zap.Duration("duration", controller.now().Sub(startedAt)))
}

func (controller *Controller) record(ctx context.Context, output *RenderOutput, startedAt time.Time) {
	if controller.recorder == nil {
		return
	}
	renderPass := model.RenderPass{
		Activated:  output.Activated,
		Status:     model.RenderPassStatusIdle,
		StartedAt:  startedAt,
		FinishedAt: controller.now(),
	}
	if output.Activated {
		renderPass.Status = model.RenderPassStatusSucceeded
	}
	if output.Failure != nil {
		renderPass.Status = model.RenderPassStatusFailed
		renderPass.FailureStage = output.Failure.Stage
		renderPass.FailureMessage = output.Failure.Message
	}
	if output.Dataset != nil {
		renderPass.Rows = output.Dataset.Rows
		renderPass.Columns = len(output.Dataset.Columns)
	}
	if recordErr := controller.recorder.RecordRenderPass(ctx, &renderPass); recordErr != nil {
		controller.logger.Warn("render_pass_record_failed", zap.Error(recordErr))
		return
	}
	output.PassID = renderPass.ID
}

package httpapi

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/config"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/dashboard"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/spreadsheet"
	"github.com/MarkoPoloResearchLab/credit_dashboard/pkg/sidebar"
)

const (
	DashboardPagePath       = "/"
	DashboardAPIPath        = "/api/dashboard"
	DashboardActivateField  = "activate"
	dashboardTemplateName   = "dashboard"
	dashboardHTMLType       = "text/html; charset=utf-8"
	dashboardRenderFailure  = "dashboard_render_failed"
	dashboardSidebarID      = "dashboard-sidebar"
	dashboardSidebarClass   = "dashboard-sidebar"
	dashboardSidebarSummary = "☰"
	dashboardSidebarHeading = "dashboard-sidebar__heading"
	dashboardTriggerClass   = "dashboard-sidebar__trigger"
	dashboardTriggerValue   = "true"
)

// DashboardRunner performs render passes.
type DashboardRunner interface {
	Run(ctx context.Context, activated bool, sheet config.SheetConfig) dashboard.RenderOutput
}

// DashboardPageHandlers serve the dashboard page and its JSON rendition.
type DashboardPageHandlers struct {
	logger   *zap.Logger
	runner   DashboardRunner
	sheet    config.SheetConfig
	template *template.Template
}

// NewDashboardPageHandlers constructs handlers that run passes against sheet.
func NewDashboardPageHandlers(logger *zap.Logger, runner DashboardRunner, sheet config.SheetConfig) *DashboardPageHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	compiledTemplate := template.Must(template.New(dashboardTemplateName).Funcs(dashboardTemplateFunctions).Parse(dashboardTemplateHTML))
	return &DashboardPageHandlers{
		logger:   logger,
		runner:   runner,
		sheet:    sheet,
		template: compiledTemplate,
	}
}

// RenderDashboardPage renders a pass without activation.
func (handlers *DashboardPageHandlers) RenderDashboardPage(context *gin.Context) {
	handlers.renderPage(context, false)
}

// TriggerDashboardAnalysis renders the pass carried by the sidebar button press.
func (handlers *DashboardPageHandlers) TriggerDashboardAnalysis(context *gin.Context) {
	handlers.renderPage(context, true)
}

// DashboardJSON runs a pass and returns its output; the activate query parameter presses the trigger.
func (handlers *DashboardPageHandlers) DashboardJSON(context *gin.Context) {
	activated, _ := strconv.ParseBool(strings.TrimSpace(context.Query(DashboardActivateField)))
	output := handlers.runner.Run(context.Request.Context(), activated, handlers.sheet)
	context.JSON(FailureStatusCode(output.Failure), output)
}

func (handlers *DashboardPageHandlers) renderPage(context *gin.Context, activated bool) {
	output := handlers.runner.Run(context.Request.Context(), activated, handlers.sheet)

	sidebarHTML, sidebarErr := sidebar.Render(sidebar.Config{
		ElementID:      dashboardSidebarID,
		BaseClass:      dashboardSidebarClass,
		SummaryLabel:   dashboardSidebarSummary,
		Heading:        output.Sidebar.Heading,
		HeadingClass:   dashboardSidebarHeading,
		Divider:        output.Sidebar.Divider,
		FormAction:     DashboardPagePath,
		FormMethod:     strings.ToLower(http.MethodPost),
		TriggerName:    DashboardActivateField,
		TriggerValue:   dashboardTriggerValue,
		TriggerLabel:   output.Sidebar.TriggerLabel,
		TriggerClass:   dashboardTriggerClass,
		Expanded:       output.Page.SidebarState != dashboard.SidebarStateCollapsed,
		TriggerPressed: output.Sidebar.Pressed,
	})
	if sidebarErr != nil {
		handlers.logger.Error("render_dashboard_sidebar", zap.Error(sidebarErr))
		sidebarHTML = template.HTML("")
	}

	var buffer bytes.Buffer
	if executeErr := handlers.template.Execute(&buffer, newDashboardTemplateData(output, sidebarHTML)); executeErr != nil {
		handlers.logger.Error("render_dashboard_page", zap.Error(executeErr))
		context.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": dashboardRenderFailure})
		return
	}
	context.Data(FailureStatusCode(output.Failure), dashboardHTMLType, buffer.Bytes())
}

// FailureStatusCode maps a pass failure to its HTTP status: 502 for spreadsheet fetch errors, 500 for
// configuration and every other stage failure, 200 when the pass did not fail.
func FailureStatusCode(failure *dashboard.Failure) int {
	if failure == nil {
		return http.StatusOK
	}
	var configurationErr *config.ConfigurationError
	if errors.As(failure.Err, &configurationErr) {
		return http.StatusInternalServerError
	}
	if errors.Is(failure.Err, spreadsheet.ErrFetch) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/httpapi"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/model"
	"github.com/MarkoPoloResearchLab/credit_dashboard/internal/testutil"
)

type failingRenderPassLister struct{}

func (failingRenderPassLister) RecentRenderPasses(context.Context, int) ([]model.RenderPass, error) {
	return nil, errors.New("database is locked")
}

func buildPassesRouter(lister httpapi.RenderPassLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET(httpapi.RenderPassesAPIPath, httpapi.NewRenderPassHandlers(zap.NewNop(), lister).ListRenderPasses)
	router.GET(httpapi.HealthPath, httpapi.Health)
	return router
}

func TestListRenderPassesReturnsNewestFirst(t *testing.T) {
	repository := testutil.NewSQLiteTestDatabase(t).OpenRenderPassRepository(t)
	startedAt := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	for index, status := range []string{model.RenderPassStatusIdle, model.RenderPassStatusFailed} {
		passStartedAt := startedAt.Add(time.Duration(index) * time.Minute)
		require.NoError(t, repository.RecordRenderPass(context.Background(), &model.RenderPass{
			Activated:  status != model.RenderPassStatusIdle,
			Status:     status,
			StartedAt:  passStartedAt,
			FinishedAt: passStartedAt,
		}))
	}

	recorder := performRequest(t, buildPassesRouter(repository), http.MethodGet, httpapi.RenderPassesAPIPath+"?limit=5", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	var payload struct {
		Passes []model.RenderPass `json:"passes"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Len(t, payload.Passes, 2)
	require.Equal(t, model.RenderPassStatusFailed, payload.Passes[0].Status)
	require.Equal(t, model.RenderPassStatusIdle, payload.Passes[1].Status)
}

func TestListRenderPassesErrors(t *testing.T) {
	testCases := []struct {
		name           string
		lister         httpapi.RenderPassLister
		target         string
		expectedStatus int
		expectedError  string
	}{
		{name: "history disabled", lister: nil, target: httpapi.RenderPassesAPIPath, expectedStatus: http.StatusNotFound, expectedError: "history_disabled"},
		{name: "invalid limit", lister: failingRenderPassLister{}, target: httpapi.RenderPassesAPIPath + "?limit=abc", expectedStatus: http.StatusBadRequest, expectedError: "invalid_limit"},
		{name: "lister failure", lister: failingRenderPassLister{}, target: httpapi.RenderPassesAPIPath, expectedStatus: http.StatusInternalServerError, expectedError: "history_list_failed"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(testingT *testing.T) {
			recorder := performRequest(testingT, buildPassesRouter(testCase.lister), http.MethodGet, testCase.target, "")
			require.Equal(testingT, testCase.expectedStatus, recorder.Code)
			var payload map[string]string
			require.NoError(testingT, json.Unmarshal(recorder.Body.Bytes(), &payload))
			require.Equal(testingT, testCase.expectedError, payload["error"])
		})
	}
}

func TestHealthReportsOK(t *testing.T) {
	recorder := performRequest(t, buildPassesRouter(nil), http.MethodGet, httpapi.HealthPath, "")

	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"status":"ok"}`, recorder.Body.String())
}

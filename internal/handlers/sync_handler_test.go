package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addrsync/internal/repository"
	"github.com/stwalsh4118/addrsync/internal/services"
)

// MockSyncPipeline is a mock implementation of services.SyncPipeline
type MockSyncPipeline struct {
	mock.Mock
}

func (m *MockSyncPipeline) Run(ctx context.Context, ids []int64, srid int) (*services.SyncSummary, error) {
	args := m.Called(ctx, ids, srid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SyncSummary), args.Error(1)
}

func setupSyncRouter(pipeline services.SyncPipeline) *gin.Engine {
	router := gin.New()
	handler := NewSyncHandler(pipeline, 4326)
	router.POST("/api/v1/sync/runs", handler.Run)
	return router
}

func postRun(router *gin.Engine, body []byte) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/runs", reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRun_Success(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)

	summary := &services.SyncSummary{
		Attempted:  2,
		BIAUpdated: 1,
		Succeeded:  2,
		Results: []services.RecordResult{
			{ID: 1, Outcome: services.OutcomeSucceeded},
			{ID: 2, Outcome: services.OutcomeSucceeded},
		},
	}
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(summary, nil)

	// Act
	w := postRun(router, []byte(`{}`))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)

	var response RunResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.NotNil(t, response.Summary)
	assert.Equal(t, 2, response.Summary.Attempted)
	assert.Equal(t, 2, response.Summary.Succeeded)
	mockPipeline.AssertExpectations(t)
}

func TestRun_EmptyBodyUsesDefaultSRID(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(&services.SyncSummary{}, nil)

	// Act
	w := postRun(router, nil)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	mockPipeline.AssertExpectations(t)
}

func TestRun_CustomSRID(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, 3857).Return(&services.SyncSummary{}, nil)

	// Act
	w := postRun(router, []byte(`{"srid":3857}`))

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	mockPipeline.AssertExpectations(t)
}

func TestRun_ExplicitRecordIDs(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, []int64{11, 12}, 4326).Return(&services.SyncSummary{Attempted: 2}, nil)

	// Act
	w := postRun(router, []byte(`{"record_ids":[11,12]}`))

	// Assert: the supplied ids reach the pipeline untouched
	assert.Equal(t, http.StatusOK, w.Code)
	mockPipeline.AssertExpectations(t)
}

func TestRun_InvalidRecordID(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)

	// Act
	w := postRun(router, []byte(`{"record_ids":[11,0]}`))

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockPipeline.AssertNotCalled(t, "Run")
}

func TestRun_NoSelection(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(nil, services.ErrNoSelection)

	// Act
	w := postRun(router, []byte(`{}`))

	// Assert: caller mistake, not a conflict
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "NO_SELECTION")
}

func TestRun_RunInProgress(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(nil, services.ErrRunInProgress)

	// Act
	w := postRun(router, []byte(`{}`))

	// Assert
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_IN_PROGRESS")
}

func TestRun_SchemaMismatch(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)

	ambiguous := &repository.AmbiguousFieldError{
		Base:       "parcel_id",
		Candidates: []string{"parcel_id", "parcel_id_1"},
	}
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(nil, ambiguous)

	// Act
	w := postRun(router, []byte(`{}`))

	// Assert
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "SCHEMA_MISMATCH")
}

func TestRun_InternalError(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)
	mockPipeline.On("Run", mock.Anything, mock.Anything, 4326).Return(nil, errors.New("gis store unavailable"))

	// Act
	w := postRun(router, []byte(`{}`))

	// Assert
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_SERVER_ERROR")
	// Internal details are not exposed to the client
	assert.NotContains(t, w.Body.String(), "gis store unavailable")
}

func TestRun_InvalidSRID(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)

	// Act
	w := postRun(router, []byte(`{"srid":-5}`))

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockPipeline.AssertNotCalled(t, "Run")
}

func TestRun_MalformedJSON(t *testing.T) {
	// Arrange
	mockPipeline := new(MockSyncPipeline)
	router := setupSyncRouter(mockPipeline)

	// Act
	w := postRun(router, []byte(`{not json`))

	// Assert
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockPipeline.AssertNotCalled(t, "Run")
}

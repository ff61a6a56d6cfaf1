package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
	"github.com/stwalsh4118/addrsync/internal/repository"
)

func TestProject_SetsCoordinatesFromGeometry(t *testing.T) {
	// Arrange
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	ctx := context.Background()
	recA := &models.AddressRecord{ID: 1}
	recB := &models.AddressRecord{ID: 2}

	mockRepo.On("Coordinates", ctx, []int64{1, 2}, DecimalDegreesSRID).Return(map[int64]repository.Coordinate{
		1: {X: -95.45, Y: 30.34},
		2: {X: -95.46, Y: 30.35},
	}, nil)

	// Act
	err := projector.Project(ctx, []*models.AddressRecord{recA, recB}, DecimalDegreesSRID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, recA.X)
	assert.Equal(t, -95.45, *recA.X)
	assert.Equal(t, 30.34, *recA.Y)
	assert.Equal(t, -95.46, *recB.X)
	assert.Equal(t, 30.35, *recB.Y)
	mockRepo.AssertExpectations(t)
}

func TestProject_OverwritesCachedCoordinates(t *testing.T) {
	// Arrange: cached x/y must be replaced by the authoritative geometry read
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	ctx := context.Background()
	staleX, staleY := 0.0, 0.0
	rec := &models.AddressRecord{ID: 1, X: &staleX, Y: &staleY}

	mockRepo.On("Coordinates", ctx, []int64{1}, DecimalDegreesSRID).Return(map[int64]repository.Coordinate{
		1: {X: -110.1, Y: 48.2},
	}, nil)

	// Act
	err := projector.Project(ctx, []*models.AddressRecord{rec}, DecimalDegreesSRID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, -110.1, *rec.X)
	assert.Equal(t, 48.2, *rec.Y)
}

func TestProject_MissingGeometryLeavesRecordUnchanged(t *testing.T) {
	// Arrange
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	ctx := context.Background()
	rec := &models.AddressRecord{ID: 9}

	mockRepo.On("Coordinates", ctx, []int64{9}, DecimalDegreesSRID).Return(map[int64]repository.Coordinate{}, nil)

	// Act
	err := projector.Project(ctx, []*models.AddressRecord{rec}, DecimalDegreesSRID)

	// Assert
	require.NoError(t, err)
	assert.Nil(t, rec.X)
	assert.Nil(t, rec.Y)
}

func TestProject_EmptyBatch(t *testing.T) {
	// Arrange
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	// Act
	err := projector.Project(context.Background(), nil, DecimalDegreesSRID)

	// Assert
	require.NoError(t, err)
	mockRepo.AssertNotCalled(t, "Coordinates")
}

func TestProject_InvalidSRID(t *testing.T) {
	// Arrange
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	// Act
	err := projector.Project(context.Background(), []*models.AddressRecord{{ID: 1}}, 0)

	// Assert
	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "Coordinates")
}

func TestProject_RepositoryError(t *testing.T) {
	// Arrange
	mockRepo := new(MockAddressRepository)
	projector := NewGeometryProjector(mockRepo, logger.New("test"))

	ctx := context.Background()
	dbErr := errors.New("connection refused")
	mockRepo.On("Coordinates", ctx, []int64{1}, DecimalDegreesSRID).Return(nil, dbErr)

	// Act
	err := projector.Project(ctx, []*models.AddressRecord{{ID: 1}}, DecimalDegreesSRID)

	// Assert
	assert.Error(t, err)
	assert.ErrorIs(t, err, dbErr)
}

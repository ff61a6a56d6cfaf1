package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/addrsync/internal/logger"
	"github.com/stwalsh4118/addrsync/internal/models"
	"github.com/stwalsh4118/addrsync/internal/repository"
)

func TestTransfer_MatchedAndUnmatchedRecords(t *testing.T) {
	// Arrange: A has no join match, B sits inside BIA zone 3
	engine := NewAttributeTransferEngine(logger.New("test"))
	recA := &models.AddressRecord{ID: 1}
	recB := &models.AddressRecord{ID: 2}
	records := []*models.AddressRecord{recA, recB}

	result := &repository.JoinResult{
		Field:  "bia",
		Values: map[int64]interface{}{2: int64(3)},
	}

	// Act
	updated, err := engine.Transfer(records, result, BIABinding())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Nil(t, recA.BIA, "unmatched record must be untouched")
	require.NotNil(t, recB.BIA)
	assert.Equal(t, 3, *recB.BIA)
}

func TestTransfer_ParcelScenario(t *testing.T) {
	// Arrange: parcel P-100 intersects only record B
	engine := NewAttributeTransferEngine(logger.New("test"))
	recA := &models.AddressRecord{ID: 1}
	recB := &models.AddressRecord{ID: 2}

	result := &repository.JoinResult{
		Field:  "parcel_id_1",
		Values: map[int64]interface{}{2: "P-100"},
	}

	// Act
	updated, err := engine.Transfer([]*models.AddressRecord{recA, recB}, result, ParcelIDBinding())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Nil(t, recA.ParcelID)
	require.NotNil(t, recB.ParcelID)
	assert.Equal(t, "P-100", *recB.ParcelID)
}

func TestTransfer_OverwritesExistingValue(t *testing.T) {
	// Arrange: stale value from a previous run is overwritten, never merged
	engine := NewAttributeTransferEngine(logger.New("test"))
	stale := "P-OLD"
	rec := &models.AddressRecord{ID: 7, ParcelID: &stale}

	result := &repository.JoinResult{
		Field:  "parcel_id_1",
		Values: map[int64]interface{}{7: "P-NEW"},
	}

	// Act
	updated, err := engine.Transfer([]*models.AddressRecord{rec}, result, ParcelIDBinding())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, "P-NEW", *rec.ParcelID)
}

func TestTransfer_EmptyJoinResult(t *testing.T) {
	// Arrange: a join may legitimately match nothing
	engine := NewAttributeTransferEngine(logger.New("test"))
	prior := 9
	rec := &models.AddressRecord{ID: 1, BIA: &prior}

	result := &repository.JoinResult{
		Field:  "bia",
		Values: map[int64]interface{}{},
	}

	// Act
	updated, err := engine.Transfer([]*models.AddressRecord{rec}, result, BIABinding())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Equal(t, 9, *rec.BIA, "absent mapping must not overwrite")
}

func TestBIABinding_IntegerForms(t *testing.T) {
	// Join results surface integers in whatever width the layer schema uses
	testCases := []struct {
		name  string
		value interface{}
		want  int
	}{
		{"int64", int64(3), 3},
		{"int32", int32(12), 12},
		{"int16", int16(7), 7},
		{"numeric string", "42", 42},
		{"float64 whole", float64(5), 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &models.AddressRecord{ID: 1}

			err := BIABinding().Assign(rec, tc.value)

			require.NoError(t, err)
			require.NotNil(t, rec.BIA)
			assert.Equal(t, tc.want, *rec.BIA)
		})
	}
}

func TestBIABinding_NonNumericValue(t *testing.T) {
	rec := &models.AddressRecord{ID: 1}

	err := BIABinding().Assign(rec, "not-a-number")

	assert.Error(t, err)
	assert.Nil(t, rec.BIA)
}

func TestTransfer_ConversionFailureStopsTransfer(t *testing.T) {
	// Arrange
	engine := NewAttributeTransferEngine(logger.New("test"))
	rec := &models.AddressRecord{ID: 1}

	result := &repository.JoinResult{
		Field:  "bia",
		Values: map[int64]interface{}{1: "garbage"},
	}

	// Act
	_, err := engine.Transfer([]*models.AddressRecord{rec}, result, BIABinding())

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}

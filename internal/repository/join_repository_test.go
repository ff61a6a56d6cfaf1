package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJoinedField(t *testing.T) {
	testCases := []struct {
		name      string
		columns   []string
		attribute string
		wantIdx   int
		wantName  string
		wantErr   bool
	}{
		{
			name:      "exact column name",
			columns:   []string{"target_id", "id", "bia", "geom"},
			attribute: "bia",
			wantIdx:   2,
			wantName:  "bia",
		},
		{
			name:      "collision-renamed column",
			columns:   []string{"target_id", "id", "parcel_id_1", "geom"},
			attribute: "parcel_id",
			wantIdx:   2,
			wantName:  "parcel_id_1",
		},
		{
			name:      "no candidate",
			columns:   []string{"target_id", "id", "owner_name", "geom"},
			attribute: "bia",
			wantErr:   true,
		},
		{
			name:      "multiple candidates",
			columns:   []string{"target_id", "id", "parcel_id", "parcel_id_1"},
			attribute: "parcel_id",
			wantErr:   true,
		},
		{
			name:      "target id column never matches",
			columns:   []string{"target_id", "target_zone"},
			attribute: "target",
			wantIdx:   1,
			wantName:  "target_zone",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Act
			idx, name, err := ResolveJoinedField(tc.columns, tc.attribute)

			// Assert
			if tc.wantErr {
				require.Error(t, err)
				var ambiguous *AmbiguousFieldError
				assert.ErrorAs(t, err, &ambiguous)
				assert.Equal(t, tc.attribute, ambiguous.Base)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantIdx, idx)
			assert.Equal(t, tc.wantName, name)
		})
	}
}

func TestAmbiguousFieldError_Message(t *testing.T) {
	t.Run("zero candidates", func(t *testing.T) {
		err := &AmbiguousFieldError{Base: "bia"}
		assert.Contains(t, err.Error(), `no join result column matches attribute "bia"`)
	})

	t.Run("multiple candidates", func(t *testing.T) {
		err := &AmbiguousFieldError{
			Base:       "parcel_id",
			Candidates: []string{"parcel_id", "parcel_id_1"},
		}
		assert.Contains(t, err.Error(), "multiple join result columns")
		assert.Contains(t, err.Error(), "parcel_id_1")
	})
}

func TestErrLayerMissing_Wrapping(t *testing.T) {
	// Stage-fatal classification relies on errors.Is through wrapped errors
	wrapped := errors.Join(errors.New("context"), ErrLayerMissing)
	assert.True(t, errors.Is(wrapped, ErrLayerMissing))
}

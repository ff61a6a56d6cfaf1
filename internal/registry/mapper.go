package registry

import (
	"github.com/stwalsh4118/addrsync/internal/models"
)

// BuildParams maps an enriched address record into the registry procedure's
// fixed parameter schema. The correspondence is static; any schema change on
// the registry side lands here and nowhere else.
func BuildParams(rec *models.AddressRecord) UpsertParams {
	return UpsertParams{
		HouseNumber:     rec.HouseNumber,
		PrefixDirection: rec.PrefixDirection,
		StreetName:      rec.StreetName,
		StreetType:      rec.StreetType,
		SuffixDirection: rec.SuffixDirection,
		UnitType:        rec.UnitType,
		UnitNumber:      rec.UnitNumber,
		City:            rec.City,
		Province:        rec.Province,
		PostalCode:      rec.PostalCode,
		Plat:            rec.Plat,
		Lot:             rec.Lot,
		Block:           rec.Block,
		Subdivision:     rec.Subdivision,
		Section:         rec.Section,
		Township:        rec.Township,
		Range:           rec.Range,
		ProjectRef:      rec.ProjectRef,
		CreatedAt:       rec.CreatedAt,
		EditedBy:        rec.EditedBy,
		EditedAt:        rec.EditedAt,
		ParcelID:        rec.ParcelID,
		X:               rec.X,
		Y:               rec.Y,
		BIA:             rec.BIA,
	}
}

package models

import (
	"time"
)

// AddressRecord represents one address point feature in the GIS store.
// All nullable fields use pointers to distinguish between zero values and NULL.
// RegistryID is the natural key assigned by the external registry; nil means
// the record has not been synchronized yet.
type AddressRecord struct {
	CreatedAt       time.Time  `gorm:"column:created_at" json:"createdAt"`
	EditedAt        *time.Time `gorm:"column:edited_at" json:"editedAt,omitempty"`
	EditedBy        *string    `gorm:"size:100;column:edited_by" json:"editedBy,omitempty"`
	HouseNumber     *string    `gorm:"size:20;column:house_number" json:"houseNumber,omitempty"`
	PrefixDirection *string    `gorm:"size:10;column:prefix_direction" json:"prefixDirection,omitempty"`
	StreetName      *string    `gorm:"size:100;index;column:street_name" json:"streetName,omitempty"`
	StreetType      *string    `gorm:"size:20;column:street_type" json:"streetType,omitempty"`
	SuffixDirection *string    `gorm:"size:10;column:suffix_direction" json:"suffixDirection,omitempty"`
	UnitType        *string    `gorm:"size:20;column:unit_type" json:"unitType,omitempty"`
	UnitNumber      *string    `gorm:"size:20;column:unit_number" json:"unitNumber,omitempty"`
	City            *string    `gorm:"size:100;column:city" json:"city,omitempty"`
	Province        *string    `gorm:"size:50;column:province" json:"province,omitempty"`
	PostalCode      *string    `gorm:"size:20;column:postal_code" json:"postalCode,omitempty"`
	Plat            *string    `gorm:"size:50;column:plat" json:"plat,omitempty"`
	Lot             *string    `gorm:"size:50;column:lot" json:"lot,omitempty"`
	Block           *string    `gorm:"size:50;column:block" json:"block,omitempty"`
	Subdivision     *string    `gorm:"size:100;column:subdivision" json:"subdivision,omitempty"`
	Section         *int       `gorm:"column:section" json:"section,omitempty"`
	Township        *string    `gorm:"size:20;column:township" json:"township,omitempty"`
	Range           *string    `gorm:"size:20;column:range" json:"range,omitempty"`
	ProjectRef      *string    `gorm:"size:50;column:project_ref" json:"projectRef,omitempty"`
	ParcelID        *string    `gorm:"size:50;column:parcel_id" json:"parcelId,omitempty"`
	BIA             *int       `gorm:"column:bia" json:"bia,omitempty"`
	X               *float64   `gorm:"column:x" json:"x,omitempty"`
	Y               *float64   `gorm:"column:y" json:"y,omitempty"`
	RegistryID      *int64     `gorm:"index;column:registry_id" json:"registryId,omitempty"`
	Geom            Point      `gorm:"type:geometry(Point,4326);not null;column:geom" json:"geometry"`
	ID              int64      `gorm:"primaryKey" json:"id"`
	Selected        bool       `gorm:"index;column:selected" json:"selected"`
}

// TableName specifies the table name for the address points layer.
func (AddressRecord) TableName() string {
	return "address_points"
}

// Synced reports whether the record already carries a registry identifier.
// Synced records are excluded from further synchronization attempts.
func (r *AddressRecord) Synced() bool {
	return r.RegistryID != nil
}

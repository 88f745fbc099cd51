// Package models holds the row shapes scanned from and written to the store.
package models

import "database/sql"

type School struct {
	ID             int64
	RegistryNumber int64
	Name           string
	NIP            sql.NullString
	REGON          string
	StudentCount   sql.NullInt32
	DirectorFirst  sql.NullString
	DirectorLast   sql.NullString
	PostalCode     string
	BuildingNo     sql.NullString
	ApartmentNo    sql.NullString
	Phone          sql.NullString
	Email          sql.NullString
	Website        sql.NullString
	Latitude       float64
	Longitude      float64
	Score          sql.NullFloat64

	RegionID          int64
	CountyID          int64
	BoroughID         int64
	LocalityID        int64
	SchoolTypeID      int64
	LegalStatusID     int64
	StudentCategoryID int64
}

package persistence

import (
	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence/models"
	"github.com/eduatlas/eduatlas/pkg/mapping"
)

func toDomainSchool(m *models.School) *school.School {
	return &school.School{
		ID:                m.ID,
		RegistryNumber:    m.RegistryNumber,
		Name:              m.Name,
		NIP:               mapping.SQLNullStringToPointer(m.NIP),
		REGON:             m.REGON,
		StudentCount:      mapping.SQLNullInt32ToPointer(m.StudentCount),
		DirectorFirst:     mapping.SQLNullStringToPointer(m.DirectorFirst),
		DirectorLast:      mapping.SQLNullStringToPointer(m.DirectorLast),
		PostalCode:        m.PostalCode,
		BuildingNo:        mapping.SQLNullStringToPointer(m.BuildingNo),
		ApartmentNo:       mapping.SQLNullStringToPointer(m.ApartmentNo),
		Phone:             mapping.SQLNullStringToPointer(m.Phone),
		Email:             mapping.SQLNullStringToPointer(m.Email),
		Website:           mapping.SQLNullStringToPointer(m.Website),
		Latitude:          m.Latitude,
		Longitude:         m.Longitude,
		Score:             mapping.SQLNullFloat64ToPointer(m.Score),
		RegionID:          m.RegionID,
		CountyID:          m.CountyID,
		BoroughID:         m.BoroughID,
		LocalityID:        m.LocalityID,
		SchoolTypeID:      m.SchoolTypeID,
		LegalStatusID:     m.LegalStatusID,
		StudentCategoryID: m.StudentCategoryID,
	}
}

func toDBSchool(s *school.School) *models.School {
	return &models.School{
		ID:                s.ID,
		RegistryNumber:    s.RegistryNumber,
		Name:              s.Name,
		NIP:               mapping.PointerToSQLNullString(s.NIP),
		REGON:             s.REGON,
		StudentCount:      mapping.PointerToSQLNullInt32(s.StudentCount),
		DirectorFirst:     mapping.PointerToSQLNullString(s.DirectorFirst),
		DirectorLast:      mapping.PointerToSQLNullString(s.DirectorLast),
		PostalCode:        s.PostalCode,
		BuildingNo:        mapping.PointerToSQLNullString(s.BuildingNo),
		ApartmentNo:       mapping.PointerToSQLNullString(s.ApartmentNo),
		Phone:             mapping.PointerToSQLNullString(s.Phone),
		Email:             mapping.PointerToSQLNullString(s.Email),
		Website:           mapping.PointerToSQLNullString(s.Website),
		Latitude:          s.Latitude,
		Longitude:         s.Longitude,
		Score:             mapping.PointerToSQLNullFloat64(s.Score),
		RegionID:          s.RegionID,
		CountyID:          s.CountyID,
		BoroughID:         s.BoroughID,
		LocalityID:        s.LocalityID,
		SchoolTypeID:      s.SchoolTypeID,
		LegalStatusID:     s.LegalStatusID,
		StudentCategoryID: s.StudentCategoryID,
	}
}

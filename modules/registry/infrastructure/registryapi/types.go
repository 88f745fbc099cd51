package registryapi

// Page is one page of the JSON-LD ("hydra") paginated collection the registry
// exposes.
type Page struct {
	Members []Record `json:"hydra:member"`
	View    PageView `json:"hydra:view"`
}

type PageView struct {
	Next string `json:"hydra:next"`
}

// HasNext reports whether the source advertises a further page. Its absence is
// the only legitimate end-of-data signal; an empty member list is not.
func (p *Page) HasNext() bool {
	return p.View.Next != ""
}

// Named is a nested reference object carrying a display name.
type Named struct {
	ID   int    `json:"id"`
	Name string `json:"nazwa" validate:"required"`
}

type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is one denormalized school record as served by the registry. The
// validate tags describe the full expected shape; validation runs once at the
// ingestion boundary and a failing record is skipped as a whole.
type Record struct {
	RegistryNumber int64   `json:"numerRspo" validate:"required"`
	Name           string  `json:"nazwa" validate:"required"`
	REGON          string  `json:"regon" validate:"required"`
	NIP            *string `json:"nip"`
	StudentCount   *int    `json:"liczbaUczniow"`
	DirectorFirst  *string `json:"dyrektorImie"`
	DirectorLast   *string `json:"dyrektorNazwisko"`
	PostalCode     string  `json:"kodPocztowy" validate:"required"`
	BuildingNo     *string `json:"numerBudynku"`
	ApartmentNo    *string `json:"numerLokalu"`
	Phone          *string `json:"telefon"`
	Email          *string `json:"email" validate:"omitempty,email"`
	Website        *string `json:"stronaInternetowa"`

	Region       string `json:"wojewodztwo" validate:"required"`
	RegionCode   string `json:"wojewodztwoKodTERYT" validate:"required"`
	County       string `json:"powiat" validate:"required"`
	CountyCode   string `json:"powiatKodTERYT" validate:"required"`
	Borough      string `json:"gmina" validate:"required"`
	BoroughCode  string `json:"gminaKodTERYT" validate:"required"`
	Locality     string `json:"miejscowosc" validate:"required"`
	LocalityCode string `json:"miejscowoscKodTERYT" validate:"required"`
	Street       *string `json:"ulica"`
	StreetCode   *string `json:"ulicaKodTERYT"`

	Geolocation     Geolocation `json:"geolokalizacja" validate:"required"`
	Type            Named       `json:"typ" validate:"required"`
	LegalStatus     Named       `json:"statusPublicznoPrawny" validate:"required"`
	StudentCategory Named       `json:"kategoriaUczniow" validate:"required"`

	EducationStages    []Named `json:"etapyEdukacji" validate:"dive"`
	VocationalPrograms []Named `json:"ksztalcenieZawodowe" validate:"dive"`
}

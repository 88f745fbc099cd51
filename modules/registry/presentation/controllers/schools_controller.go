package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/eduatlas/eduatlas/modules/registry/domain/aggregates/school"
	"github.com/eduatlas/eduatlas/modules/registry/infrastructure/persistence"
)

// SchoolsController serves the read-only school lookups: single school by ID
// and map-viewport listing by bounding box.
type SchoolsController struct {
	schools school.Repository
	logger  logrus.FieldLogger
}

func NewSchoolsController(schools school.Repository, logger logrus.FieldLogger) *SchoolsController {
	return &SchoolsController{schools: schools, logger: logger}
}

func (c *SchoolsController) Register(r *mux.Router) {
	r.HandleFunc("/schools", c.List).Methods(http.MethodGet)
	r.HandleFunc("/schools/{id:[0-9]+}", c.Get).Methods(http.MethodGet)
}

type schoolResponse struct {
	ID             int64    `json:"id"`
	RegistryNumber int64    `json:"registryNumber"`
	Name           string   `json:"name"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Score          *float64 `json:"score"`
	StudentCount   *int     `json:"studentCount,omitempty"`
	PostalCode     string   `json:"postalCode"`
	Phone          *string  `json:"phone,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Website        *string  `json:"website,omitempty"`
}

func toSchoolResponse(s *school.School) schoolResponse {
	return schoolResponse{
		ID:             s.ID,
		RegistryNumber: s.RegistryNumber,
		Name:           s.Name,
		Latitude:       s.Latitude,
		Longitude:      s.Longitude,
		Score:          s.Score,
		StudentCount:   s.StudentCount,
		PostalCode:     s.PostalCode,
		Phone:          s.Phone,
		Email:          s.Email,
		Website:        s.Website,
	}
}

func (c *SchoolsController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid school id")
		return
	}

	s, err := c.schools.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			writeError(w, http.StatusNotFound, "school not found")
			return
		}
		c.logger.WithError(err).Error("failed to load school")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toSchoolResponse(s))
}

func (c *SchoolsController) List(w http.ResponseWriter, r *http.Request) {
	bounds, err := boundsFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schools, err := c.schools.FindInBounds(r.Context(), bounds)
	if err != nil {
		c.logger.WithError(err).Error("failed to list schools in bounds")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]schoolResponse, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchoolResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func boundsFromQuery(r *http.Request) (school.Bounds, error) {
	var b school.Bounds
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"north", &b.North},
		{"south", &b.South},
		{"west", &b.West},
		{"east", &b.East},
	} {
		raw := r.URL.Query().Get(p.name)
		if raw == "" {
			return b, errors.Errorf("missing query parameter %q", p.name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return b, errors.Errorf("invalid query parameter %q", p.name)
		}
		*p.dst = v
	}
	if b.North < b.South {
		return b, errors.New("north must not be below south")
	}
	if b.East < b.West {
		return b, errors.New("east must not be west of west")
	}
	if b.South < -90 || b.North > 90 {
		return b, errors.New("latitude out of range")
	}
	if b.West < -180 || b.East > 180 {
		return b, errors.New("longitude out of range")
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

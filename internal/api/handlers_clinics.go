package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/clinic"
)

func listClinicsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clinics := svc.Load(r.Context(), ActorFrom(r.Context()))
		if clinics == nil {
			clinics = []clinic.Clinic{}
		}
		writeJSON(w, http.StatusOK, clinics)
	}
}

func createClinicHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateClinicRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		c, err := svc.Create(r.Context(), ActorFrom(r.Context()), &clinic.Clinic{
			Name:           req.Name,
			AddressLine:    req.AddressLine,
			City:           req.City,
			State:          req.State,
			PostalCode:     req.PostalCode,
			Phone:          req.Phone,
			OperatingHours: req.OperatingHours,
		})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

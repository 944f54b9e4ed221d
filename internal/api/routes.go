package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler, auth mux.MiddlewareFunc) {
	sub := r.PathPrefix("/api/v1").Subrouter()
	if auth != nil {
		sub.Use(auth)
	}

	sub.HandleFunc("/permits", h.CreatePermit).Methods(http.MethodPost)
	sub.HandleFunc("/permits", h.ListPermits).Methods(http.MethodGet)
	sub.HandleFunc("/permits/{id:[0-9]+}", h.GetPermit).Methods(http.MethodGet)
	sub.HandleFunc("/permits/{id:[0-9]+}/submit", h.SubmitPermit).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/approval", h.RecordApproval).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/extension", h.RequestExtension).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/extension/decision", h.ResolveExtension).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/suspend", h.SuspendPermit).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/resume", h.ResumePermit).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/close", h.ClosePermit).Methods(http.MethodPost)
	sub.HandleFunc("/permits/{id:[0-9]+}/cancel", h.CancelPermit).Methods(http.MethodPost)

	sub.HandleFunc("/catalog/hazards", h.ListHazards).Methods(http.MethodGet)
	sub.HandleFunc("/catalog/ppe", h.ListPPE).Methods(http.MethodGet)
	sub.HandleFunc("/catalog/checklist", h.ListChecklist).Methods(http.MethodGet)
}

package http

import (
	"net/http"
)

type ownerBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *handler) createOwner(w http.ResponseWriter, r *http.Request) {
	var in ownerBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := h.svc.Owners.CreateOwner(r.Context(), actor(r), in.Name, in.Email, in.Phone)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, owner)
}

func (h *handler) getOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := h.svc.Owners.GetOwner(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, owner)
}

type propertyBody struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (h *handler) addProperty(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in propertyBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	prop, err := h.svc.Owners.AddProperty(r.Context(), actor(r), id, in.Name, in.Address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, prop)
}

func (h *handler) deleteOwner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Owners.DeleteOwner(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

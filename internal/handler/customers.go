package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/keteik/simple-inventory-management-system/internal/wire"
)

func (h *Handler) registerCustomer(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRegister(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.customers.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeCustomer(e, c) })
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.customers.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeCustomer(e, c) })
}

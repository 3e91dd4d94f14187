package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/keteik/simple-inventory-management-system/internal/domain/product"
	"github.com/keteik/simple-inventory-management-system/internal/wire"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.products.List(r.Context(), page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProductPage(e, p) })
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateProduct(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeProduct(e, p) })
}

func (h *Handler) restockProduct(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.products.Restock)
}

func (h *Handler) sellProduct(w http.ResponseWriter, r *http.Request) {
	h.adjustStock(w, r, h.products.Sell)
}

type stockFunc func(ctx context.Context, id string, amount int) (*product.Product, error)

func (h *Handler) adjustStock(w http.ResponseWriter, r *http.Request, adjust stockFunc) {
	amount, err := decodeAmount(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := adjust(r.Context(), chi.URLParam(r, "id"), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeProduct(e, p) })
}

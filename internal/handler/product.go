package handler

import "net/http"

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	views := make([]productView, len(products))
	for i := range products {
		views[i] = viewProduct(&products[i])
	}
	respondOK(w, "products", views)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product_id")
	if err != nil {
		respond(w, http.StatusUnprocessableEntity, "invalid product id", nil)
		return
	}
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, "product", viewProduct(p))
}

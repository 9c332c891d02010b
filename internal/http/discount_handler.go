package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/vapealley/internal/discount"
)

type DiscountApplier interface {
	Apply(ctx context.Context, req discount.Request) (*discount.Result, error)
}

type DiscountHandler struct {
	engine  DiscountApplier
	timeout time.Duration
	logger  *slog.Logger
}

func NewDiscountHandler(engine DiscountApplier, timeout time.Duration, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{engine: engine, timeout: timeout, logger: logger}
}

func (h *DiscountHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req discount.Request
	if err := decodeJSON(r, discountSchema, &req); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	res, err := h.engine.Apply(ctx, req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

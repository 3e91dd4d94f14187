package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/keteik/simple-inventory-management-system/internal/domain/order"
	"github.com/keteik/simple-inventory-management-system/internal/transaction"
	"github.com/keteik/simple-inventory-management-system/internal/wire"
)

// HeaderIdempotentReplay marks a response served from a previous commit.
const HeaderIdempotentReplay = "Idempotent-Replayed"

func (h *Handler) commitOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := decodeCommit(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	key := r.Header.Get(HeaderIdempotencyKey)
	if h.idem == nil {
		key = ""
	}
	if key != "" {
		orderID, acquired, err := h.idem.Acquire(ctx, key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if !acquired {
			h.replay(w, r, orderID)
			return
		}
	}

	o, err := h.orders.Commit(ctx, req)
	h.recordCommit(ctx, err)
	if err != nil {
		if key != "" {
			h.settleKey(ctx, key, "")
		}
		writeError(w, r, err)
		return
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID))
	if key != "" {
		h.settleKey(ctx, key, o.ID)
	}
	h.publish(ctx, o)

	lg.Info("Order committed",
		zap.String("customer_id", o.CustomerID),
		zap.Stringer("final_price", o.Pricing.FinalPrice),
	)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
}

// replay answers a retried request with the order its key produced.
func (h *Handler) replay(w http.ResponseWriter, r *http.Request, orderID string) {
	o, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderIdempotentReplay, "true")
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
}

// publish announces o. The order is already committed, so failures are only
// logged.
func (h *Handler) publish(ctx context.Context, o *order.Order) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()
	if err := h.events.OrderCommitted(ctx, o); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
}

// settleKey completes the key with orderID, or releases it when orderID is
// empty. It runs detached from the request: once Commit has returned, a
// disconnecting client must not leave the key pending until its TTL.
func (h *Handler) settleKey(ctx context.Context, key, orderID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.publishTimeout)
	defer cancel()
	if orderID == "" {
		if err := h.idem.Release(ctx, key); err != nil {
			zctx.From(ctx).Warn("Release idempotency key", zap.Error(err))
		}
		return
	}
	if err := h.idem.Complete(ctx, key, orderID); err != nil {
		zctx.From(ctx).Warn("Complete idempotency key",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (h *Handler) recordCommit(ctx context.Context, err error) {
	outcome := "committed"
	switch {
	case err == nil:
	case transaction.IsAborted(err):
		outcome = "aborted"
	case status(err) < http.StatusInternalServerError:
		outcome = "rejected"
	default:
		outcome = "failed"
	}
	h.commits.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { wire.EncodeOrder(e, o) })
}

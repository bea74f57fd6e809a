package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vmyroslav/ordertrain/order"
)

const (
	defaultBulkCount = 10
	maxBulkCount     = 10000
	maxBodyBytes     = 1 << 20
)

// Dispatcher publishes an order asynchronously.
type Dispatcher interface {
	Dispatch(o order.Order) error
}

type DispatchResponse struct {
	OrderID string `json:"orderId"`
	Message string `json:"message"`
}

type BulkResponse struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type producerHandler struct {
	dispatcher Dispatcher
	generator  *order.Generator
	logger     *zap.Logger
}

// NewProducerHandler routes the order trigger endpoints.
// Requests are validated before anything is dispatched.
func NewProducerHandler(dispatcher Dispatcher, generator *order.Generator, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &producerHandler{
		dispatcher: dispatcher,
		generator:  generator,
		logger:     logger,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /produce", h.handleProduce)
	mux.HandleFunc("POST /api/orders", h.handleProduce)
	mux.HandleFunc("POST /produce/bulk", h.handleBulk)
	mux.HandleFunc("POST /api/orders/bulk", h.handleBulk)
	mux.HandleFunc("GET /health", handleHealth(logger))

	return mux
}

func (h *producerHandler) handleProduce(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	var req *order.Request

	if len(body) > 0 {
		req = &order.Request{}
		if err = json.Unmarshal(body, req); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Malformed JSON", err.Error())
			return
		}
	}

	o := h.generator.FromRequest(req)
	if err = o.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid order", err.Error())
		return
	}

	if err = h.dispatcher.Dispatch(o); err != nil {
		h.logger.Error("failed to dispatch order", zap.String("order_id", o.ID), zap.Error(err))
		writeError(w, h.logger, http.StatusServiceUnavailable, "Producer unavailable", "")

		return
	}

	writeJSON(w, h.logger, http.StatusAccepted, DispatchResponse{
		OrderID: o.ID,
		Message: "Order dispatched: " + o.ID,
	})
}

func (h *producerHandler) handleBulk(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	var requests []order.Request

	if len(body) > 0 {
		if err = json.Unmarshal(body, &requests); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Malformed JSON", err.Error())
			return
		}
	}

	var orders []order.Order

	if len(requests) > 0 {
		orders = make([]order.Order, 0, len(requests))

		for i := range requests {
			o := h.generator.FromRequest(&requests[i])
			if err = o.Validate(); err != nil {
				writeError(w, h.logger, http.StatusBadRequest, "Invalid order",
					fmt.Sprintf("item %d: %s", i, err))

				return
			}

			orders = append(orders, o)
		}
	} else {
		var count int

		count, err = parseCount(r.URL.Query().Get("count"))
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid count", err.Error())
			return
		}

		orders = make([]order.Order, 0, count)
		for range count {
			orders = append(orders, h.generator.Random())
		}
	}

	dispatched := 0

	for _, o := range orders {
		if err = h.dispatcher.Dispatch(o); err != nil {
			h.logger.Error("failed to dispatch order", zap.String("order_id", o.ID), zap.Error(err))
			break
		}

		dispatched++
	}

	if dispatched == 0 {
		writeError(w, h.logger, http.StatusServiceUnavailable, "Producer unavailable", "")
		return
	}

	h.logger.Info("bulk orders dispatched", zap.Int("count", dispatched))

	writeJSON(w, h.logger, http.StatusAccepted, BulkResponse{
		Count:   dispatched,
		Message: fmt.Sprintf("Dispatched %d orders", dispatched),
	})
}

// parseCount reads the bulk count query parameter.
func parseCount(raw string) (int, error) {
	if raw == "" {
		return defaultBulkCount, nil
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.Errorf("count must be an integer, got %q", raw)
	}

	if count <= 0 {
		return 0, errors.Errorf("count must be greater than 0, got %d", count)
	}

	if count > maxBulkCount {
		return 0, errors.Errorf("count must not exceed %d, got %d", maxBulkCount, count)
	}

	return count, nil
}

// readBody returns the trimmed request body; an empty body is not an error.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	return bytes.TrimSpace(body), nil
}

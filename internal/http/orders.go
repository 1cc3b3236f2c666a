package http

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/ordergw/order-gateway/internal/etag"
	"github.com/ordergw/order-gateway/internal/metrics"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
	"github.com/ordergw/order-gateway/internal/service/orders"
	"github.com/ordergw/order-gateway/internal/validate"
)

type orderReq struct {
	BuyerID    string            `json:"buyer_id"`
	BuyerName  string            `json:"buyer_name"`
	Items      []model.OrderItem `json:"items"`
	Address    model.Address     `json:"address"`
	Payment    model.Payment     `json:"payment"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
}

type orderResp struct {
	ID         string            `json:"id"`
	BuyerID    string            `json:"buyer_id"`
	BuyerName  string            `json:"buyer_name"`
	Items      []model.OrderItem `json:"items"`
	Address    model.Address     `json:"address"`
	Payment    model.Payment     `json:"payment"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
	RowVersion int64             `json:"row_version"`
}

func toOrderResp(o *model.Order) orderResp {
	return orderResp{
		ID:         o.ID,
		BuyerID:    o.BuyerID,
		BuyerName:  o.BuyerName,
		Items:      o.Items,
		Address:    o.Address,
		Payment:    o.Payment,
		Status:     o.Status.String(),
		TotalPrice: o.TotalPrice,
		RowVersion: o.RowVersion,
	}
}

// bindCommand validates the request body the same way the consumer later
// validates the event, so bad fields die at the edge.
func bindCommand(c echo.Context) (orders.Command, bool) {
	var req orderReq
	if err := c.Bind(&req); err != nil {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		return orders.Command{}, false
	}
	if strings.TrimSpace(req.BuyerID) == "" || len(req.Items) == 0 {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "buyer_id and items are required"})
		return orders.Command{}, false
	}
	for _, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" || it.UnitPrice <= 0 || it.Quantity <= 0 {
			_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid order item"})
			return orders.Command{}, false
		}
	}
	status, ok := model.ParseOrderStatus(req.Status)
	if !ok {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return orders.Command{}, false
	}
	if err := validate.Address(req.Address); err != nil {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		return orders.Command{}, false
	}
	if err := validate.Payment(req.Payment); err != nil {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		return orders.Command{}, false
	}
	return orders.Command{
		BuyerID:    strings.TrimSpace(req.BuyerID),
		BuyerName:  strings.TrimSpace(req.BuyerName),
		Items:      req.Items,
		Address:    req.Address,
		Payment:    req.Payment,
		Status:     status,
		TotalPrice: req.TotalPrice,
	}, true
}

// ifMatchVersion parses the If-Match weak tag. A missing or malformed tag is
// a client error before any row is read.
func ifMatchVersion(c echo.Context) (int64, bool) {
	v, err := etag.Parse(c.Request().Header.Get("If-Match"))
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, map[string]string{"error": `if-match must be W/"<version>"`})
		return 0, false
	}
	return v, true
}

func writeMutationError(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, orders.ErrTotalPriceMismatch):
		metrics.OrderMutationsTotal.WithLabelValues(op, "invalid").Inc()
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "total_price does not match items"})
	case errors.Is(err, repository.ErrVersionConflict):
		metrics.OrderMutationsTotal.WithLabelValues(op, "conflict").Inc()
		return c.JSON(http.StatusPreconditionFailed, map[string]string{"error": "version conflict"})
	case errors.Is(err, repository.ErrNotFound):
		metrics.OrderMutationsTotal.WithLabelValues(op, "error").Inc()
		return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
	default:
		metrics.OrderMutationsTotal.WithLabelValues(op, "error").Inc()
		log.Errorf("%s order failed: %v", op, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
	}
}

func createOrderHandler(svc *orders.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		cmd, ok := bindCommand(c)
		if !ok {
			return nil
		}
		o, err := svc.Create(c.Request().Context(), cmd)
		if err != nil {
			return writeMutationError(c, "create", err)
		}
		metrics.OrderMutationsTotal.WithLabelValues("create", "ok").Inc()
		c.Response().Header().Set("ETag", etag.Format(o.RowVersion))
		return c.JSON(http.StatusCreated, toOrderResp(o))
	}
}

func getOrderHandler(svc *orders.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		o, err := svc.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "order not found"})
			}
			log.Errorf("get order failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		c.Response().Header().Set("ETag", etag.Format(o.RowVersion))
		return c.JSON(http.StatusOK, toOrderResp(o))
	}
}

func updateOrderHandler(svc *orders.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected, ok := ifMatchVersion(c)
		if !ok {
			return nil
		}
		cmd, ok := bindCommand(c)
		if !ok {
			return nil
		}
		o, err := svc.Update(c.Request().Context(), c.Param("id"), cmd, expected)
		if err != nil {
			return writeMutationError(c, "update", err)
		}
		metrics.OrderMutationsTotal.WithLabelValues("update", "ok").Inc()
		c.Response().Header().Set("ETag", etag.Format(o.RowVersion))
		return c.JSON(http.StatusOK, toOrderResp(o))
	}
}

func deleteOrderHandler(svc *orders.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		expected, ok := ifMatchVersion(c)
		if !ok {
			return nil
		}
		if _, err := svc.Delete(c.Request().Context(), c.Param("id"), expected); err != nil {
			return writeMutationError(c, "delete", err)
		}
		metrics.OrderMutationsTotal.WithLabelValues("delete", "ok").Inc()
		return c.NoContent(http.StatusNoContent)
	}
}

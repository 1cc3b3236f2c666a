package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/ordergw/order-gateway/internal/repository"
)

func listOrderEventsHandler(reports repository.ReportsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		orderID := strings.TrimSpace(c.QueryParam("order_id"))
		if orderID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "order_id is required"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		eventType := strings.TrimSpace(c.QueryParam("event_type"))

		rows, err := reports.ListByOrder(c.Request().Context(), orderID, eventType, limit, offset)
		if err != nil {
			log.Errorf("list order events failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "reporting store error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"order_id": orderID,
			"count":    len(rows),
			"events":   rows,
		})
	}
}

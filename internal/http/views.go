package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/ordergw/order-gateway/internal/model"
	"github.com/ordergw/order-gateway/internal/repository"
)

type viewResp struct {
	ID         string            `json:"id"`
	BuyerID    string            `json:"buyer_id"`
	BuyerName  string            `json:"buyer_name"`
	Items      []model.OrderItem `json:"items"`
	Address    model.Address     `json:"address"`
	Status     string            `json:"status"`
	TotalPrice int64             `json:"total_price"`
	IsDeleted  bool              `json:"is_deleted"`

	CreatedVersion int64 `json:"order_created_event_version"`
	UpdatedVersion int64 `json:"order_updated_event_version"`
	DeletedVersion int64 `json:"order_deleted_event_version"`
}

func getOrderViewHandler(views repository.ViewsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		v, err := views.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "view not found"})
			}
			log.Errorf("get view failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		return c.JSON(http.StatusOK, viewResp{
			ID:        v.ID,
			BuyerID:   v.BuyerID,
			BuyerName: v.BuyerName,
			Items:     v.Items,
			Address: model.Address{
				Street:     v.Street,
				City:       v.City,
				PostalCode: v.PostalCode,
				Country:    v.Country,
			},
			Status:         v.Status.String(),
			TotalPrice:     v.TotalPrice,
			IsDeleted:      v.IsDeleted,
			CreatedVersion: v.OrderCreatedEventVersion,
			UpdatedVersion: v.OrderUpdatedEventVersion,
			DeletedVersion: v.OrderDeletedEventVersion,
		})
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/growthmart/internal/domain/errors"
	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/server/http/dto"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidOrder), errors.Is(err, domainErrors.ErrInvalidProgress):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrStatusConflict), errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: msg})
}

func abortBadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: msg})
}

func toOrderResponse(order model.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:             order.ID,
		UserID:         order.UserID,
		ServiceID:      order.ServiceID,
		TargetURL:      order.TargetURL,
		Quantity:       order.Quantity,
		PricePerUnit:   order.PricePerUnit,
		BaseAmount:     order.BaseAmount,
		DiscountAmount: order.DiscountAmount,
		Charge:         order.Charge,
		FinalPrice:     order.FinalPrice,
		Status:         string(order.Status),
		APIOrderID:     order.APIOrderID,
		APIError:       order.APIError,
		Progress:       order.Progress,
		Attempts:       order.Attempts,
		ProcessedAt:    order.ProcessedAt,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}

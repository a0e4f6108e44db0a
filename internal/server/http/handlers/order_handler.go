package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/growthmart/internal/domain/model"
	"github.com/polkiloo/growthmart/internal/server/http/dto"
)

// OrderHandler manages order placement and lookup endpoints.
type OrderHandler struct {
	facade OrderFacade
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(facade OrderFacade) *OrderHandler {
	return &OrderHandler{facade: facade}
}

// Create handles POST /api/orders.
func (h *OrderHandler) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "malformed order payload")
		return
	}

	order, err := h.facade.CreateOrder(c.Request.Context(), model.NewOrder{
		UserID:         strings.TrimSpace(req.UserID),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		TargetURL:      strings.TrimSpace(req.TargetURL),
		Quantity:       req.Quantity,
		PricePerUnit:   req.PricePerUnit,
		BaseAmount:     req.BaseAmount,
		DiscountAmount: req.DiscountAmount,
		Charge:         req.Charge,
		FinalPrice:     req.FinalPrice,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(*order))
}

// Get handles GET /api/orders/:id.
func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.facade.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResponse(*order))
}

// List handles GET /api/orders.
func (h *OrderHandler) List(c *gin.Context) {
	filter := model.OrderFilter{
		UserID: c.Query("user_id"),
		Search: strings.TrimSpace(c.Query("search")),
	}

	if raw := c.Query("status"); raw != "" {
		status := model.OrderStatus(strings.ToUpper(raw))
		if !status.Valid() {
			abortBadRequest(c, "unknown status")
			return
		}
		filter.Status = status
	}

	var ok bool
	if filter.Page, ok = queryInt(c, "page"); !ok {
		abortBadRequest(c, "page must be an integer")
		return
	}
	if filter.Limit, ok = queryInt(c, "limit"); !ok {
		abortBadRequest(c, "limit must be an integer")
		return
	}

	page, err := h.facade.Orders(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := dto.OrderPageResponse{
		Items: make([]dto.OrderResponse, 0, len(page.Items)),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
		Pages: page.Pages,
	}
	for _, o := range page.Items {
		resp.Items = append(resp.Items, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

package handler

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/tillpoint-api/internal/application/service"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/request"
	"github.com/sangkips/tillpoint-api/internal/presentation/http/dto/response"
	"github.com/sangkips/tillpoint-api/pkg/apperror"
)

// BillingHandler records checkouts
type BillingHandler struct {
	billingService *service.BillingService
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(billingService *service.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// Create records a sale from the till cart
// @Summary Bill a cart
// @Description Records the sale, its items and the stock decrements in one transaction
// @Tags billing
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Retry key"
// @Param request body request.BillRequest true "Cart"
// @Success 200 {object} response.BillCreated
// @Failure 404 {object} response.APIResponse
// @Failure 409 {object} response.APIResponse
// @Failure 422 {object} response.APIResponse
// @Router /billing [post]
func (h *BillingHandler) Create(c *gin.Context) {
	userID := GetUserID(c)
	if userID == nil {
		response.Unauthorized(c, "User not authenticated")
		return
	}

	var req request.BillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	input := &service.BillInput{
		CashierID:     *userID,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   req.TotalAmount,
		Items:         make([]service.BillItemInput, 0, len(req.Items)),
	}
	if req.Customer != nil {
		input.Customer = &service.BillCustomerInput{
			Name:    req.Customer.Name,
			Phone:   req.Customer.Phone,
			Email:   req.Customer.Email,
			Address: req.Customer.Address,
		}
	}
	var idErrors []apperror.FieldError
	for i, item := range req.Items {
		// blank ids stay uuid.Nil and are reported as required by the service
		var productID uuid.UUID
		if raw := strings.TrimSpace(item.ProductID); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				idErrors = append(idErrors, apperror.FieldError{
					Field:   fmt.Sprintf("items[%d].product_id", i),
					Message: "must be a valid id",
				})
			}
			productID = parsed
		}
		input.Items = append(input.Items, service.BillItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		})
	}

	if len(idErrors) > 0 {
		response.Error(c, apperror.NewValidationError(idErrors))
		return
	}

	result, err := h.billingService.Bill(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Bill(c, result.SaleID.String(), result.InvoiceNo, result.Total.String())
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/workspace/internal/billing"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
)

const MsgBillingSaved = "Billing settings saved successfully"

func (h *Handler) GetBilling(ctx *gin.Context) {
	records, err := h.store.ListBilling(ctx.Request.Context())

	if err != nil {
		h.writeError(ctx, err, "Billing settings not found", "Failed to retrieve billing settings")
		return
	}

	if records == nil {
		records = []models.BillingRecord{}
	}

	ctx.JSON(http.StatusOK, types.BillingListResponse{Data: records})
}

func (h *Handler) SaveBilling(ctx *gin.Context) {
	var data models.BillingData

	if err := ctx.ShouldBindJSON(&data); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := billing.ValidateData(data); err != nil {
		var verr *billing.ValidationError
		if errors.As(err, &verr) {
			ctx.JSON(http.StatusBadRequest, types.ErrorResponse{
				Error:  "Invalid billing settings",
				Fields: verr.Fields,
			})
			return
		}
		h.writeError(ctx, err, "Billing settings not found", "Failed to save billing settings")
		return
	}

	if data.PaymentMethods == nil {
		data.PaymentMethods = []models.PaymentMethod{}
	}

	record, err := h.store.SaveBilling(ctx.Request.Context(), models.BillingRecord{
		ID:          uuid.NewString(),
		BillingData: data,
		CreatedAt:   h.now().UTC(),
	})

	if err != nil {
		h.writeError(ctx, err, "Billing settings not found", "Failed to save billing settings")
		return
	}

	h.log.Infow("billing settings saved", "record_id", record.ID, "payment_methods", len(record.PaymentMethods))

	ctx.JSON(http.StatusCreated, types.BillingSaveResponse{
		Message: MsgBillingSaved,
		Data:    record,
	})
}

func (h *Handler) RemovePaymentMethod(ctx *gin.Context) {
	var body types.RemovePaymentMethodRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Payment method ID is required"})
		return
	}

	if err := h.store.RemovePaymentMethod(ctx.Request.Context(), body.ID); err != nil {
		h.writeError(ctx, err, "Payment method not found", "Failed to remove payment method")
		return
	}

	ctx.JSON(http.StatusOK, types.MessageResponse{Message: "Payment method removed"})
}

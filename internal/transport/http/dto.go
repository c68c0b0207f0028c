package http

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// saveCartRequest — клиентское состояние корзины при синхронизации.
type saveCartRequest struct {
	Lines []saveCartLine `json:"lines"`
}

type saveCartLine struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

// checkoutRequest — параметры оформления заказа.
type checkoutRequest struct {
	AddressID       string `json:"address_id" binding:"required"`
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
	ShippingMinor   int64  `json:"shipping_minor"`
	DiscountMinor   int64  `json:"discount_minor"`
}

type shipRequest struct {
	TrackingCode string `json:"tracking_code" binding:"required"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type cartLineResponse struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Qty           int32  `json:"qty"`
	PriceMinor    int64  `json:"price_minor"`
	SubtotalMinor int64  `json:"subtotal_minor"`
	Adjustment    string `json:"adjustment,omitempty"`
}

type cartResponse struct {
	ID         string             `json:"id"`
	Lines      []cartLineResponse `json:"lines"`
	TotalMinor int64              `json:"total_minor"`
}

type orderLineResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	SubtotalMinor  int64  `json:"subtotal_minor"`
}

type addressResponse struct {
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

type customerResponse struct {
	Name  string `json:"name"`
	TaxID string `json:"tax_id,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	Status          string              `json:"status"`
	Date            time.Time           `json:"date"`
	Lines           []orderLineResponse `json:"lines"`
	ShippingAddress addressResponse     `json:"shipping_address"`
	PaymentDesc     string              `json:"payment_description"`
	Customer        customerResponse    `json:"customer"`
	ShippingMinor   int64               `json:"shipping_minor"`
	DiscountMinor   int64               `json:"discount_minor"`
	TotalMinor      int64               `json:"total_minor"`
	TrackingCode    string              `json:"tracking_code,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

type timelineEventResponse struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

func toCartResponse(view *domain.CartView) cartResponse {
	resp := cartResponse{
		ID:         view.ID,
		Lines:      make([]cartLineResponse, 0, len(view.Lines)),
		TotalMinor: view.TotalMinor,
	}
	for _, line := range view.Lines {
		resp.Lines = append(resp.Lines, cartLineResponse{
			ProductID:     line.Product.ID,
			ProductName:   line.Product.Name,
			Qty:           line.Qty,
			PriceMinor:    line.PriceMinor,
			SubtotalMinor: line.SubtotalMinor,
			Adjustment:    string(line.Adjustment),
		})
	}
	return resp
}

func toOrderResponse(order domain.Order) orderResponse {
	resp := orderResponse{
		ID:     order.ID,
		Status: string(order.Status),
		Date:   order.Date,
		Lines:  make([]orderLineResponse, 0, len(order.Lines)),
		ShippingAddress: addressResponse{
			Street: order.ShippingAddress.Street,
			City:   order.ShippingAddress.City,
			State:  order.ShippingAddress.State,
			Zip:    order.ShippingAddress.Zip,
		},
		PaymentDesc: order.Payment.Description,
		Customer: customerResponse{
			Name:  order.Customer.Name,
			TaxID: order.Customer.TaxID,
			Phone: order.Customer.Phone,
			Email: order.Customer.Email,
		},
		ShippingMinor: order.ShippingMinor,
		DiscountMinor: order.DiscountMinor,
		TotalMinor:    order.TotalMinor,
		TrackingCode:  order.TrackingCode,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
	for _, line := range order.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ID:             line.ID,
			ProductID:      line.ProductID,
			Qty:            line.Qty,
			UnitPriceMinor: line.UnitPriceMinor,
			SubtotalMinor:  line.SubtotalMinor,
		})
	}
	return resp
}

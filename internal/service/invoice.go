package service

import (
	"fmt"
	"strings"

	"github.com/karigai-ops/backend/internal/models"
)

// GST rate in basis points. Food products sold here fall under the 5% slab.
const gstRateBps = 500

// BuildInvoice computes the GST invoice for one order. Intra-state sales
// split the tax into CGST+SGST halves; inter-state sales levy IGST.
// Amounts stay in paise end to end.
func BuildInvoice(order models.Order, sellerStateCode, sellerGSTIN string) models.Invoice {
	line := models.InvoiceLine{
		Product:    order.Product,
		Quantity:   order.Quantity,
		UnitPaise:  order.PricePaise,
		TotalPaise: order.PricePaise * int64(order.Quantity),
	}

	inv := models.Invoice{
		InvoiceNumber: invoiceNumber(order.OrderNumber),
		OrderNumber:   order.OrderNumber,
		GSTIN:         sellerGSTIN,
		BuyerState:    order.StateCode,
		Lines:         []models.InvoiceLine{line},
		SubtotalPaise: line.TotalPaise,
	}

	tax := inv.SubtotalPaise * gstRateBps / 10000
	if strings.TrimSpace(order.StateCode) == strings.TrimSpace(sellerStateCode) {
		half := tax / 2
		inv.CGSTPaise = half
		inv.SGSTPaise = tax - half
	} else {
		inv.IGSTPaise = tax
	}
	inv.TotalPaise = inv.SubtotalPaise + tax
	return inv
}

func invoiceNumber(orderNumber string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(orderNumber))
	cleaned = strings.ReplaceAll(cleaned, " ", "-")
	return "INV-" + cleaned
}

// FormatRupees renders paise as a rupee string for slips and emails.
func FormatRupees(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusSettle    OrderStatus = "settle"
	StatusRefund    OrderStatus = "refund"
	StatusPending   OrderStatus = "pending"
	StatusCancelled OrderStatus = "cancelled"
)

// DayReport is one outlet's operating day as served by the POS backend.
type DayReport struct {
	OutletName string  `json:"outletName"`
	Orders     []Order `json:"orders"`
}

type Order struct {
	ID           string      `json:"id"`
	Status       OrderStatus `json:"status"`
	OrderType    *NamedRef   `json:"orderType,omitempty"`
	Items        []Item      `json:"items"`
	Summary      Summary     `json:"summary"`
	PaymentInfo  PaymentInfo `json:"paymentInfo"`
	Customer     *NamedRef   `json:"customer,omitempty"`
	CounterStaff *NamedRef   `json:"counterStaff,omitempty"`
	RefundAmount float64     `json:"refundAmount,omitempty"`
	KDSAt        []float64   `json:"kds_at,omitempty"`
}

// NamedRef is the embedded {name: ...} shape used for order types, customers and staff.
type NamedRef struct {
	Name string `json:"name"`
}

type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Coupon   float64 `json:"coupon"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type PaymentInfo struct {
	OrderTotal float64   `json:"orderTotal"`
	Tip        float64   `json:"tip"`
	GrandTotal float64   `json:"grandTotal"`
	TotalPaid  float64   `json:"totalPaid"`
	Remaining  float64   `json:"remaining"`
	Return     float64   `json:"return"`
	Payments   []Payment `json:"payments"`
}

type Payment struct {
	TypeName string  `json:"typeName"`
	Amount   float64 `json:"amount"`
}

type Item struct {
	Name         string  `json:"name"`
	CategoryName string  `json:"category_name"`
	Quantity     float64 `json:"quantity"`
	TotalPrice   float64 `json:"total_price"`
}

// EffectiveQuantity treats an absent or zero quantity as a single unit.
func (i Item) EffectiveQuantity() float64 {
	if i.Quantity == 0 {
		return 1
	}
	return i.Quantity
}

// Timestamp returns the first KDS timestamp, if any. A leading null or 0
// (both decode to 0) counts as no timestamp.
func (o Order) Timestamp() (time.Time, bool) {
	if len(o.KDSAt) == 0 || o.KDSAt[0] == 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(o.KDSAt[0])), true
}

// ErrNotArray is returned when a payload's top-level JSON value is not an array.
var ErrNotArray = errors.New("top-level json value must be an array")

// DecodeDayReports decodes a JSON array of day reports.
func DecodeDayReports(data []byte) ([]DayReport, error) {
	if err := requireArray(data); err != nil {
		return nil, err
	}
	var reports []DayReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode day reports: %w", err)
	}
	return reports, nil
}

// DecodeRecords decodes a JSON array of schema-less records.
func DecodeRecords(data []byte) ([]Record, error) {
	if err := requireArray(data); err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return records, nil
}

func requireArray(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return ErrNotArray
	}
	return nil
}

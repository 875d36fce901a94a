package models

import "time"

type Order struct {
	OrderNumber  string `json:"order_number"`
	CustomerName string `json:"customer_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	StateCode    string `json:"state_code"`
	Pincode      string `json:"pincode"`
	Product      string `json:"product"`
	Quantity     int    `json:"quantity"`
	PricePaise   int64  `json:"price_paise"`
	Courier      string `json:"courier"`
	TrackingCode string `json:"tracking_code,omitempty"`
	OrderedAt    string `json:"ordered_at"`
}

// NDRRecord is a delivery-exception row as stored upstream. This service
// never creates or deletes one, only patches fields in place.
type NDRRecord struct {
	ID             int64    `json:"id"`
	Waybill        string   `json:"waybill"`
	OrderNumber    string   `json:"order_number"`
	Courier        string   `json:"courier"`
	DeliveryStatus string   `json:"delivery_status"`
	Remark         string   `json:"remark"`
	EventTime      string   `json:"event_time"`
	PartnerEDD     string   `json:"partner_edd"`
	CallStatus     string   `json:"call_status"`
	EmailSent      bool     `json:"email_sent"`
	Notes          NDRNotes `json:"notes"`
	Bucket         string   `json:"bucket"`
}

// NDRNotes is the JSON blob kept inside the record's notes column.
type NDRNotes struct {
	Phone          string `json:"phone,omitempty"`
	Issue          string `json:"issue,omitempty"`
	ActionTaken    string `json:"action_taken,omitempty"`
	BucketOverride string `json:"bucket_override,omitempty"`
}

// RepeatLead is one customer's order aggregate as returned by the
// get_repeat_orders_with_assignments RPC. The aggregate is computed
// remotely; this service only reads it and requests mutations.
type RepeatLead struct {
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	CustomerName   string   `json:"customer_name"`
	OrderCount     int      `json:"order_count"`
	OrderNumbers   []string `json:"order_numbers"`
	FirstOrderDate string   `json:"first_order_date"`
	LastOrderDate  string   `json:"last_order_date"`
	AssignedTo     string   `json:"assigned_to"`
	AssignedAt     string   `json:"assigned_at"`
	TeamID         string   `json:"team_id"`
	CallStatus     string   `json:"call_status"`
}

// FeedbackRow is a survey answer row from NocoDB. Column names float on the
// remote side, so values are resolved through field aliases at the client
// boundary and kept as a flat map past it.
type FeedbackRow struct {
	RecordID    int64             `json:"record_id"`
	OrderNumber string            `json:"order_number"`
	Agent       string            `json:"agent"`
	Date        string            `json:"date"`
	Fields      map[string]string `json:"fields"`
}

type TrackingEntry struct {
	Order    string `json:"order"`
	Tracking string `json:"tracking"`
	Date     string `json:"date"`
	Phone    string `json:"phone"`
}

type Manifest struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Couriers  []ManifestGroup `json:"couriers"`
	Total     int             `json:"total"`
}

type ManifestGroup struct {
	Courier string   `json:"courier"`
	Orders  []string `json:"orders"`
	Count   int      `json:"count"`
}

type Invoice struct {
	InvoiceNumber string        `json:"invoice_number"`
	OrderNumber   string        `json:"order_number"`
	GSTIN         string        `json:"gstin"`
	BuyerState    string        `json:"buyer_state_code"`
	Lines         []InvoiceLine `json:"lines"`
	SubtotalPaise int64         `json:"subtotal_paise"`
	CGSTPaise     int64         `json:"cgst_paise"`
	SGSTPaise     int64         `json:"sgst_paise"`
	IGSTPaise     int64         `json:"igst_paise"`
	TotalPaise    int64         `json:"total_paise"`
}

type InvoiceLine struct {
	Product    string `json:"product"`
	Quantity   int    `json:"quantity"`
	UnitPaise  int64  `json:"unit_paise"`
	TotalPaise int64  `json:"total_paise"`
}

// OperatorSession is the per-operator context the original console kept in
// browser localStorage: caller identity, team and the last order number.
type OperatorSession struct {
	Operator        string    `json:"operator"`
	AgentName       string    `json:"agent_name"`
	AgentPhone      string    `json:"agent_phone"`
	TeamID          string    `json:"team_id"`
	LastOrderNumber string    `json:"last_order_number"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CategoryCount struct {
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/supabase"
	"github.com/karigai-ops/backend/internal/webhook"
)

const (
	BucketDelivered      = "Delivered"
	BucketCNA            = "CNA"
	BucketPremisesClosed = "Premises Closed"
	BucketAddressIssue   = "Address Issue"
	BucketPending        = "Pending"
	BucketRTO            = "RTO"
	BucketOther          = "Other"
)

// Buckets in dashboard display order.
var Buckets = []string{
	BucketDelivered,
	BucketCNA,
	BucketPremisesClosed,
	BucketAddressIssue,
	BucketPending,
	BucketRTO,
	BucketOther,
}

// ToBucket maps a courier status line and free-text remark onto one of the
// seven fixed buckets. Ordered substring checks; a remark that says
// delivered wins over whatever the status column claims.
func ToBucket(deliveryStatus, remark string) string {
	status := strings.ToLower(strings.TrimSpace(deliveryStatus))
	rem := strings.ToLower(strings.TrimSpace(remark))

	if strings.Contains(rem, "delivered") {
		return BucketDelivered
	}
	if strings.Contains(status, "delivered") {
		return BucketDelivered
	}

	combined := status + " " + rem
	switch {
	case strings.Contains(combined, "consignee not available"),
		strings.Contains(combined, "customer not available"),
		strings.Contains(combined, "not reachable"),
		strings.Contains(combined, "no response"),
		strings.Contains(combined, "cna"):
		return BucketCNA
	case strings.Contains(combined, "premises closed"),
		strings.Contains(combined, "office closed"),
		strings.Contains(combined, "closed"):
		return BucketPremisesClosed
	case strings.Contains(combined, "address"),
		strings.Contains(combined, "pincode not serviceable"),
		strings.Contains(combined, "wrong locality"):
		return BucketAddressIssue
	case strings.Contains(combined, "rto"),
		strings.Contains(combined, "return to origin"),
		strings.Contains(combined, "returned to shipper"):
		return BucketRTO
	case strings.Contains(combined, "pending"),
		strings.Contains(combined, "out for delivery"),
		strings.Contains(combined, "in transit"),
		strings.Contains(combined, "reattempt"):
		return BucketPending
	}
	return BucketOther
}

// DecodeNotes parses the JSON blob stored in the notes column. Anything
// unparseable yields empty notes rather than an error; upstream systems
// sometimes write plain text there.
func DecodeNotes(raw string) models.NDRNotes {
	var notes models.NDRNotes
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return notes
	}
	_ = json.Unmarshal([]byte(raw), &notes)
	return notes
}

func EncodeNotes(notes models.NDRNotes) string {
	b, err := json.Marshal(notes)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// MergeNotes overlays non-empty patch fields onto the existing blob.
func MergeNotes(existing, patch models.NDRNotes) models.NDRNotes {
	out := existing
	if patch.Phone != "" {
		out.Phone = patch.Phone
	}
	if patch.Issue != "" {
		out.Issue = patch.Issue
	}
	if patch.ActionTaken != "" {
		out.ActionTaken = patch.ActionTaken
	}
	if patch.BucketOverride != "" {
		out.BucketOverride = patch.BucketOverride
	}
	return out
}

// FromNDRRow converts a raw Supabase row into the typed record, computing
// the effective bucket (manual override beats the classifier).
func FromNDRRow(row supabase.NDRRow) models.NDRRecord {
	notes := DecodeNotes(row.Notes)
	bucket := ToBucket(row.DeliveryStatus, row.Remark)
	if notes.BucketOverride != "" {
		bucket = notes.BucketOverride
	}
	return models.NDRRecord{
		ID:             row.ID,
		Waybill:        row.Waybill,
		OrderNumber:    row.OrderNumber,
		Courier:        row.Courier,
		DeliveryStatus: row.DeliveryStatus,
		Remark:         row.Remark,
		EventTime:      row.EventTime,
		PartnerEDD:     row.PartnerEDD,
		CallStatus:     row.CallStatus,
		EmailSent:      row.EmailSent,
		Notes:          notes,
		Bucket:         bucket,
	}
}

// BucketSummary counts records per bucket in display order, dropping empty
// buckets.
func BucketSummary(records []models.NDRRecord) []models.CategoryCount {
	counts := map[string]int{}
	for _, r := range records {
		counts[r.Bucket]++
	}
	var out []models.CategoryCount
	for _, bucket := range Buckets {
		n := counts[bucket]
		if n == 0 {
			continue
		}
		out = append(out, models.CategoryCount{
			Label:      bucket,
			Count:      n,
			Percentage: roundPct(float64(n) * 100 / float64(len(records))),
		})
	}
	return out
}

// ComposeNDRMail builds the address-issue follow-up email for one record.
func ComposeNDRMail(record models.NDRRecord, customerEmail string) webhook.NDRMail {
	subject := fmt.Sprintf("Action needed: delivery issue for order %s", record.OrderNumber)
	text := fmt.Sprintf(
		"Hello,\n\nThe courier reported a problem delivering your order %s (AWB %s): %s.\n"+
			"Please reply with your complete address and a reachable phone number so we can reattempt delivery.\n\nThank you.",
		record.OrderNumber, record.Waybill, record.DeliveryStatus)
	html := fmt.Sprintf(
		"<p>Hello,</p><p>The courier reported a problem delivering your order <b>%s</b> (AWB %s): %s.</p>"+
			"<p>Please reply with your complete address and a reachable phone number so we can reattempt delivery.</p><p>Thank you.</p>",
		record.OrderNumber, record.Waybill, record.DeliveryStatus)
	return webhook.NDRMail{
		To:      customerEmail,
		Subject: subject,
		HTML:    html,
		Text:    text,
	}
}

package service

import (
	"testing"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/supabase"
)

func TestToBucketStatusRules(t *testing.T) {
	cases := []struct {
		status string
		remark string
		want   string
	}{
		{"CONSIGNEE NOT AVAILABLE", "", BucketCNA},
		{"Customer not available on call", "", BucketCNA},
		{"PREMISES CLOSED", "", BucketPremisesClosed},
		{"Office closed at time of delivery", "", BucketPremisesClosed},
		{"Incomplete address", "", BucketAddressIssue},
		{"", "wrong address given by consignee", BucketAddressIssue},
		{"RTO INITIATED", "", BucketRTO},
		{"Shipment returned to shipper", "", BucketRTO},
		{"PENDING", "", BucketPending},
		{"Out for delivery", "", BucketPending},
		{"SHIPMENT DELIVERED", "", BucketDelivered},
		{"LOST IN TRANSIT BY COURIER???", "damaged", BucketPending},
		{"some new status code", "", BucketOther},
	}
	for _, tc := range cases {
		if got := ToBucket(tc.status, tc.remark); got != tc.want {
			t.Errorf("ToBucket(%q, %q) = %q, want %q", tc.status, tc.remark, got, tc.want)
		}
	}
}

func TestToBucketRemarkDeliveredWins(t *testing.T) {
	statuses := []string{"CONSIGNEE NOT AVAILABLE", "RTO INITIATED", "PENDING", "anything"}
	for _, status := range statuses {
		if got := ToBucket(status, "Package DELIVERED to neighbour"); got != BucketDelivered {
			t.Fatalf("remark delivered must win over %q, got %q", status, got)
		}
	}
}

func TestToBucketDeterminism(t *testing.T) {
	first := ToBucket("CONSIGNEE NOT AVAILABLE", "no response on call")
	for i := 0; i < 100; i++ {
		if got := ToBucket("CONSIGNEE NOT AVAILABLE", "no response on call"); got != first {
			t.Fatalf("classifier not deterministic: %q then %q", first, got)
		}
	}
	if first != BucketCNA {
		t.Fatalf("expected CNA, got %q", first)
	}
}

func TestDecodeNotesTolerant(t *testing.T) {
	notes := DecodeNotes(`{"phone":"9876543210","issue":"gate locked"}`)
	if notes.Phone != "9876543210" || notes.Issue != "gate locked" {
		t.Fatalf("unexpected notes: %+v", notes)
	}
	if got := DecodeNotes("called twice, no answer"); got != (models.NDRNotes{}) {
		t.Fatalf("plain text notes should decode to empty, got %+v", got)
	}
	if got := DecodeNotes(""); got != (models.NDRNotes{}) {
		t.Fatalf("empty notes should decode to empty, got %+v", got)
	}
}

func TestMergeNotesKeepsExisting(t *testing.T) {
	existing := models.NDRNotes{Phone: "9876543210", Issue: "gate locked"}
	merged := MergeNotes(existing, models.NDRNotes{ActionTaken: "reattempt requested"})
	if merged.Phone != "9876543210" || merged.Issue != "gate locked" {
		t.Fatalf("merge dropped existing fields: %+v", merged)
	}
	if merged.ActionTaken != "reattempt requested" {
		t.Fatalf("merge missed patch field: %+v", merged)
	}
}

func TestFromNDRRowOverrideBeatsClassifier(t *testing.T) {
	row := supabase.NDRRow{
		Waybill:        "AWB123",
		DeliveryStatus: "CONSIGNEE NOT AVAILABLE",
		Notes:          `{"bucket_override":"Address Issue"}`,
	}
	record := FromNDRRow(row)
	if record.Bucket != BucketAddressIssue {
		t.Fatalf("expected manual override to win, got %q", record.Bucket)
	}

	row.Notes = ""
	if got := FromNDRRow(row).Bucket; got != BucketCNA {
		t.Fatalf("expected classifier bucket without override, got %q", got)
	}
}

func TestBucketSummaryOrderAndTotals(t *testing.T) {
	records := []models.NDRRecord{
		{Bucket: BucketCNA},
		{Bucket: BucketCNA},
		{Bucket: BucketDelivered},
		{Bucket: BucketRTO},
	}
	summary := BucketSummary(records)
	if len(summary) != 3 {
		t.Fatalf("expected 3 non-empty buckets, got %+v", summary)
	}
	// Display order, not count order.
	if summary[0].Label != BucketDelivered || summary[1].Label != BucketCNA || summary[2].Label != BucketRTO {
		t.Fatalf("unexpected bucket order: %+v", summary)
	}
	total := 0
	for _, s := range summary {
		total += s.Count
	}
	if total != len(records) {
		t.Fatalf("summary counts %d != records %d", total, len(records))
	}
}

package service

import (
	"encoding/csv"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/karigai-ops/backend/internal/models"
)

// ParseTrackingCSV reads the bulk tracking upload. Expected header is
// Order,Tracking,Date,Phone with alias tolerance; rows missing Order or
// Tracking are dropped silently, matching the original upload behavior.
func ParseTrackingCSV(r io.Reader) ([]models.TrackingEntry, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, err
	}
	index := headerIndex(headers)

	var out []models.TrackingEntry
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		order := getFieldAny(rec, index, "order", "order number", "order_no", "order no")
		tracking := getFieldAny(rec, index, "tracking", "tracking number", "awb", "waybill")
		if order == "" || tracking == "" {
			continue
		}
		out = append(out, models.TrackingEntry{
			Order:    order,
			Tracking: tracking,
			Date:     getFieldAny(rec, index, "date", "shipped date", "dispatch date"),
			Phone:    getFieldAny(rec, index, "phone", "mobile", "contact"),
		})
	}
	return out, nil
}

// BuildManifest groups orders by courier for handover. Orders without a
// courier land under UNASSIGNED so nothing silently disappears from the
// slip count.
func BuildManifest(orders []models.Order) models.Manifest {
	byCourier := map[string][]string{}
	for _, o := range orders {
		courier := strings.TrimSpace(o.Courier)
		if courier == "" {
			courier = "UNASSIGNED"
		}
		byCourier[courier] = append(byCourier[courier], o.OrderNumber)
	}

	couriers := make([]string, 0, len(byCourier))
	for c := range byCourier {
		couriers = append(couriers, c)
	}
	sort.Strings(couriers)

	manifest := models.Manifest{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	for _, c := range couriers {
		group := models.ManifestGroup{
			Courier: c,
			Orders:  byCourier[c],
			Count:   len(byCourier[c]),
		}
		manifest.Couriers = append(manifest.Couriers, group)
		manifest.Total += group.Count
	}
	return manifest
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

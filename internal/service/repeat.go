package service

import (
	"sort"
	"strings"

	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/utils"
)

type LeadFilter struct {
	MinOrderCount  int
	UnassignedOnly bool
	CallStatus     string
	AssignedTo     string
}

// FilterLeads applies the dashboard's client-side filters to the lead list
// fetched from the repeat-orders RPC.
func FilterLeads(leads []models.RepeatLead, f LeadFilter) []models.RepeatLead {
	out := make([]models.RepeatLead, 0, len(leads))
	for _, lead := range leads {
		if f.MinOrderCount > 0 && lead.OrderCount < f.MinOrderCount {
			continue
		}
		if f.UnassignedOnly && strings.TrimSpace(lead.AssignedTo) != "" {
			continue
		}
		if f.CallStatus != "" && !strings.EqualFold(lead.CallStatus, f.CallStatus) {
			continue
		}
		if f.AssignedTo != "" && !strings.EqualFold(lead.AssignedTo, f.AssignedTo) {
			continue
		}
		out = append(out, lead)
	}
	return out
}

type AllocationShare struct {
	Agent   string `json:"agent"`
	Percent int    `json:"percent"`
}

type AllocationPreview struct {
	Agent  string   `json:"agent"`
	Quota  int      `json:"quota"`
	Phones []string `json:"phones"`
}

// PreviewAllocation spreads the unassigned leads across agents by their
// percentage shares, so the operator sees the split before the allocation
// RPC runs. Quotas use largest-remainder; leftover leads go to agents in
// share order. Lead-to-agent placement is a deterministic fnv-hash pick,
// so the same input always previews the same split.
func PreviewAllocation(leads []models.RepeatLead, shares []AllocationShare) []AllocationPreview {
	unassigned := FilterLeads(leads, LeadFilter{UnassignedOnly: true})
	if len(shares) == 0 {
		return nil
	}

	ordered := make([]AllocationShare, len(shares))
	copy(ordered, shares)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Percent == ordered[j].Percent {
			return ordered[i].Agent < ordered[j].Agent
		}
		return ordered[i].Percent > ordered[j].Percent
	})

	total := len(unassigned)
	quotas := make([]int, len(ordered))
	assignedTotal := 0
	for i, share := range ordered {
		quotas[i] = total * share.Percent / 100
		assignedTotal += quotas[i]
	}
	for i := 0; assignedTotal < total; i = (i + 1) % len(ordered) {
		quotas[i]++
		assignedTotal++
	}

	// Stable ordering of leads by hash keeps the preview independent of
	// fetch order.
	sort.SliceStable(unassigned, func(i, j int) bool {
		return utils.StableKey(unassigned[i].Phone) < utils.StableKey(unassigned[j].Phone)
	})

	out := make([]AllocationPreview, len(ordered))
	idx := 0
	for i, share := range ordered {
		out[i] = AllocationPreview{Agent: share.Agent, Quota: quotas[i]}
		for n := 0; n < quotas[i] && idx < total; n++ {
			out[i].Phones = append(out[i].Phones, unassigned[idx].Phone)
			idx++
		}
	}
	return out
}

package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/karigai-ops/backend/internal/db"
	"github.com/karigai-ops/backend/internal/models"
	"github.com/karigai-ops/backend/internal/service"
	"github.com/karigai-ops/backend/internal/supabase"
)

// NDRSource is the slice of the Supabase client the refresher needs.
type NDRSource interface {
	ListNDR(ctx context.Context, table string) ([]supabase.NDRRow, error)
}

// NDRRefresher re-fetches delivery exceptions on a fixed interval and keeps
// the latest snapshot in memory for the NDR handlers. The snapshot is the
// only state; a failed cycle leaves the previous one intact.
type NDRRefresher struct {
	Source   NDRSource
	Table    string
	Store    *db.Store
	Logger   zerolog.Logger
	Interval time.Duration

	mu          sync.RWMutex
	records     []models.NDRRecord
	refreshedAt time.Time
}

// Run refreshes immediately, then on every tick until the context ends.
func (r *NDRRefresher) Run(ctx context.Context) {
	if r.Interval <= 0 {
		r.Interval = 5 * time.Minute
	}
	if err := r.Refresh(ctx); err != nil {
		r.Logger.Error().Err(err).Msg("initial ndr refresh failed")
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.Logger.Error().Err(err).Msg("ndr refresh failed")
			}
		}
	}
}

func (r *NDRRefresher) Refresh(ctx context.Context) error {
	var runID string
	if r.Store != nil {
		id, err := r.Store.CreateRun(ctx, "ndr_refresh", "RUNNING")
		if err != nil {
			r.Logger.Error().Err(err).Msg("failed to create refresh run")
		} else {
			runID = id
		}
	}

	rows, err := r.Source.ListNDR(ctx, r.Table)
	if err != nil {
		r.finishRun(ctx, runID, "FAILED", map[string]any{"error": err.Error()})
		return err
	}

	records := make([]models.NDRRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, service.FromNDRRow(row))
	}

	r.mu.Lock()
	r.records = records
	r.refreshedAt = time.Now().UTC()
	r.mu.Unlock()

	r.finishRun(ctx, runID, "SUCCESS", map[string]any{"records": len(records)})
	r.Logger.Info().Int("records", len(records)).Msg("ndr snapshot refreshed")
	return nil
}

func (r *NDRRefresher) finishRun(ctx context.Context, runID, status string, summary map[string]any) {
	if r.Store == nil || runID == "" {
		return
	}
	b, _ := json.Marshal(summary)
	if err := r.Store.FinishRun(ctx, runID, status, b); err != nil {
		r.Logger.Error().Err(err).Msg("failed to finish refresh run")
	}
}

// Snapshot returns a copy of the current records and when they were fetched.
func (r *NDRRefresher) Snapshot() ([]models.NDRRecord, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.NDRRecord, len(r.records))
	copy(out, r.records)
	return out, r.refreshedAt
}

// Find returns the snapshot record for a waybill.
func (r *NDRRefresher) Find(waybill string) (models.NDRRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.Waybill == waybill {
			return rec, true
		}
	}
	return models.NDRRecord{}, false
}

// Apply mutates the snapshot copy of one record after a successful remote
// PATCH. The next refresh cycle reconciles against the server state.
func (r *NDRRefresher) Apply(waybill string, mutate func(*models.NDRRecord)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.records {
		if r.records[i].Waybill == waybill {
			mutate(&r.records[i])
			return true
		}
	}
	return false
}

package board

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-pos-gateway.git/internal/pos"
)

// TableSnapshots fetches the authoritative table list.
type TableSnapshots interface {
	FetchTables(ctx context.Context) ([]pos.Table, error)
}

// TableBoard mirrors the dine-in status board. Same protocol as the order
// board, with table:updated as the only event: every payload is a full
// Table, so the merge is a plain upsert by id.
type TableBoard struct {
	src   TableSnapshots
	dedup Deduper
	log   zerolog.Logger

	mu   sync.RWMutex
	byID map[string]pos.Table
}

func NewTableBoard(src TableSnapshots, dedup Deduper, log zerolog.Logger) *TableBoard {
	return &TableBoard{
		src:   src,
		dedup: dedup,
		log:   log.With().Str("component", "table-board").Logger(),
		byID:  make(map[string]pos.Table),
	}
}

func (b *TableBoard) Seed(tables []pos.Table) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID = make(map[string]pos.Table, len(tables))
	for _, t := range tables {
		b.byID[t.TableID] = t
	}
}

func (b *TableBoard) Resync(ctx context.Context) error {
	tables, err := b.src.FetchTables(ctx)
	if err != nil {
		return fmt.Errorf("table board resync: %w", err)
	}
	b.Seed(tables)
	b.log.Info().Int("tables", len(tables)).Msg("board reseeded from snapshot")
	return nil
}

func (b *TableBoard) Apply(ctx context.Context, env pos.Envelope) error {
	if env.EventType != pos.EventTableUpdated {
		return nil
	}

	var t pos.Table
	if err := json.Unmarshal(env.Payload, &t); err != nil {
		return fmt.Errorf("decode table payload: %w", err)
	}
	if t.TableID == "" {
		return fmt.Errorf("table event %s without id", env.EventID)
	}

	// dedup after decode, same as the order board
	if b.dedup != nil && env.EventID != "" {
		if seen, err := b.dedup.SeenEvent(ctx, "tables", env.EventID); err == nil && seen {
			return nil
		}
	}

	b.mu.Lock()
	b.byID[t.TableID] = t
	b.mu.Unlock()
	return nil
}

func (b *TableBoard) All() []pos.Table {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]pos.Table, 0, len(b.byID))
	for _, t := range b.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}

func (b *TableBoard) ByStatus(status pos.TableStatus) []pos.Table {
	all := b.All()
	out := all[:0]
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

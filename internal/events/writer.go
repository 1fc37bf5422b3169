package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"coachline/internal/domain"
	"coachline/internal/sheet"
)

const eventCols = 6

var header = sheet.Row{"ts", "type", "entity_kind", "entity_id", "actor", "payload_json"}

type EventPayload map[string]any

// Writer appends audit rows to the EventLog sheet. Append-only; rows are
// never rewritten.
type Writer struct {
	Store sheet.Store
	Sheet string
	Now   func() time.Time
}

func (w Writer) Append(ctx context.Context, evtType, entityKind, entityID, actor string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	count, err := w.Store.RowCount(ctx, w.Sheet)
	if err != nil {
		return err
	}
	if count == 0 {
		if err := w.Store.AppendRow(ctx, w.Sheet, header); err != nil {
			return err
		}
	}
	return w.Store.AppendRow(ctx, w.Sheet, sheet.Row{ts, evtType, entityKind, entityID, actor, string(data)})
}

// Tail returns the most recent n events, oldest first. n <= 0 returns all.
func (w Writer) Tail(ctx context.Context, n int) ([]domain.Event, error) {
	grid, err := sheet.ReadAll(ctx, w.Store, w.Sheet, eventCols)
	if err != nil {
		return nil, err
	}
	var evts []domain.Event
	for _, row := range grid {
		if len(row) < eventCols || row[0] == "ts" {
			continue
		}
		evts = append(evts, domain.Event{
			TS:         row[0],
			Type:       row[1],
			EntityKind: row[2],
			EntityID:   row[3],
			Actor:      row[4],
			Payload:    row[5],
		})
	}
	if n > 0 && len(evts) > n {
		evts = evts[len(evts)-n:]
	}
	return evts, nil
}

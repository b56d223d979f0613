package eventlogger

import (
	"context"
	"encoding/json"

	"github.com/billbatista/acasinha-ledger/storage"
)

type sqlEventLogger struct {
	db *storage.DB
}

func NewSqlEventLogger(db *storage.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return err
	}
	statement := el.db.Dialect.Rebind(`INSERT INTO diagnostics (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`)
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, string(jsonData), string(jsonMetadata), e.CreatedAt)
	return err
}

func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := el.db.Dialect.Rebind(`SELECT id, event_type, event_data, event_metadata, created_at FROM diagnostics WHERE event_type = $1 ORDER BY created_at`)
	result, err := el.db.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var (
			event        Event
			jsonData     []byte
			jsonMetadata []byte
		)
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, err
		}
		if len(jsonData) > 0 {
			event.Data = json.RawMessage(jsonData)
		}
		if err := json.Unmarshal(jsonMetadata, &event.Metadata); err != nil {
			return events, err
		}
		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, err
	}

	return events, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bakery-storefront/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

var ErrDataAPINotInitialized = errors.New("data api: not initialized")

// ChangeHandler receives the complete record list whenever it changes.
type ChangeHandler interface {
	OnDataChanged(records []models.Record)
}

// DataAPI is the optional remote record store used by the form handlers.
// Init subscribes h and hands it the current records; every later change is
// delivered to all subscribers. Create fails with a non-nil error when the
// record was not accepted.
type DataAPI interface {
	Init(ctx context.Context, h ChangeHandler) error
	Create(ctx context.Context, r models.Record) error
	Unsubscribe(h ChangeHandler)
}

// newRecord stamps a record with a fresh id, its type and an ISO date.
func newRecord(recordType string, fields map[string]any, now time.Time) models.Record {
	r := models.Record{
		"id":   uuid.NewString(),
		"type": recordType,
		"date": now.UTC().Format(time.RFC3339),
	}
	for k, v := range fields {
		r[k] = v
	}
	return r
}

// decodeRecord maps a record onto a struct using its mapstructure tags.
// Numbers are accepted where strings are expected and RFC 3339 strings decode
// into time.Time.
func decodeRecord(r models.Record, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]any(r))
}

// PostgresDataAPI keeps records in the data_records table. One instance is
// shared by all sessions.
type PostgresDataAPI struct {
	pool   *pgxpool.Pool
	logger *zap.Logger

	mu          sync.Mutex
	subscribers []ChangeHandler
}

func NewPostgresDataAPI(pool *pgxpool.Pool, logger *zap.Logger) *PostgresDataAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresDataAPI{pool: pool, logger: logger}
}

func (p *PostgresDataAPI) Init(ctx context.Context, h ChangeHandler) error {
	records, err := p.list(ctx)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.subscribers = append(p.subscribers, h)
	p.mu.Unlock()
	h.OnDataChanged(records)
	return nil
}

func (p *PostgresDataAPI) Unsubscribe(h ChangeHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, s := range p.subscribers {
		if s == h {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

func (p *PostgresDataAPI) subscribed() []ChangeHandler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChangeHandler(nil), p.subscribers...)
}

func (p *PostgresDataAPI) Create(ctx context.Context, r models.Record) error {
	if len(p.subscribed()) == 0 {
		return ErrDataAPINotInitialized
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO data_records (id, type, payload, created_at)
		VALUES ($1, $2, $3, now())`,
		r.ID(), r.Type(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if err := p.publish(ctx); err != nil {
		// the record is stored; only the refresh failed
		p.logger.Warn("refresh records after create", zap.Error(err))
	}
	return nil
}

// publish sends the full record list to every subscriber.
func (p *PostgresDataAPI) publish(ctx context.Context) error {
	records, err := p.list(ctx)
	if err != nil {
		return err
	}
	for _, h := range p.subscribed() {
		h.OnDataChanged(records)
	}
	return nil
}

func (p *PostgresDataAPI) list(ctx context.Context) ([]models.Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT payload FROM data_records ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r models.Record
		if err := json.Unmarshal(payload, &r); err != nil {
			p.logger.Warn("skipping unreadable record", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"serwis-uzytkownikow/internal/websocket"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool  *pgxpool.Pool
	wsHub *websocket.Hub
	*Queries
}

func NewStore(pool *pgxpool.Pool, wsHub *websocket.Hub) *Store {
	return &Store{
		pool:    pool,
		wsHub:   wsHub,
		Queries: New(pool),
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

// ExecRecorded runs a mutation and its journal entry in a single transaction,
// so a committed change always has its event and a rolled-back change leaves
// none. fn returns the id of the affected user and the event payload.
// Connected clients are notified only after the commit.
func (s *Store) ExecRecorded(ctx context.Context, actorID *int64, eventType string, fn func(q *Queries) (int64, interface{}, error)) error {
	var targetUserID int64
	var payload interface{}

	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		targetUserID, payload, err = fn(q)
		if err != nil {
			return err
		}
		return q.LogEvent(ctx, actorID, eventType, payload)
	})
	if err != nil {
		return err
	}

	s.publish(targetUserID, eventType, payload)
	return nil
}

// RecordEvent journals an event outside any mutation transaction and pushes
// it to connected clients. A failure to journal is logged, not surfaced.
func (s *Store) RecordEvent(ctx context.Context, actorID *int64, targetUserID int64, eventType string, payload interface{}) {
	if err := s.LogEvent(ctx, actorID, eventType, payload); err != nil {
		log.Printf("ERROR: failed to journal event %s: %v", eventType, err)
	}
	s.publish(targetUserID, eventType, payload)
}

func (s *Store) publish(targetUserID int64, eventType string, payload interface{}) {
	if s.wsHub == nil {
		return
	}
	eventMsg := map[string]interface{}{
		"event_type": eventType,
		"payload":    payload,
	}
	eventBytes, err := json.Marshal(eventMsg)
	if err != nil {
		log.Printf("ERROR: failed to marshal event %s: %v", eventType, err)
		return
	}
	s.wsHub.PublishEvent(targetUserID, eventBytes)
}

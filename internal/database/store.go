package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hollowpoint/llmrelay/internal/conversation"
)

// ErrPersistence marks load/save I/O failures. Callers treat persistence
// as best-effort: a failed load yields empty state, a failed save is
// retried on the next snapshot interval.
var ErrPersistence = errors.New("persistence error")

// Store is the persistence gateway for conversation state.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveConversations upserts a snapshot of every conversation in one
	// transaction.
	SaveConversations(ctx context.Context, snaps map[conversation.Key]conversation.Snapshot) error

	// LoadConversations reads all persisted conversation snapshots.
	LoadConversations(ctx context.Context) (map[conversation.Key]conversation.Snapshot, error)

	// LogMessage appends one row to the raw message audit log.
	LogMessage(ctx context.Context, rec *MessageRecord) error

	// DeleteConversation removes a conversation's persisted record.
	DeleteConversation(ctx context.Context, key conversation.Key) error

	// RunMaintenance performs periodic database maintenance (VACUUM/ANALYZE).
	RunMaintenance(ctx context.Context) error
}

// sqlxStore implements Store on sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveConversations(ctx context.Context, snaps map[conversation.Key]conversation.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	const query = `
        INSERT INTO conversations (key, preset_name, custom_prompt, output_reasoning, trigger_prob, last_active, history_json, updated_at)
        VALUES (:key, :preset_name, :custom_prompt, :output_reasoning, :trigger_prob, :last_active, :history_json, :updated_at)
        ON CONFLICT(key) DO UPDATE SET
            preset_name      = excluded.preset_name,
            custom_prompt    = excluded.custom_prompt,
            output_reasoning = excluded.output_reasoning,
            trigger_prob     = excluded.trigger_prob,
            last_active      = excluded.last_active,
            history_json     = excluded.history_json,
            updated_at       = excluded.updated_at;
    `

	now := time.Now().UTC()
	for key, snap := range snaps {
		historyJSON, err := json.Marshal(snap.History)
		if err != nil {
			return fmt.Errorf("%w: marshal history for %s: %v", ErrPersistence, key, err)
		}

		rec := ConversationRecord{
			Key:             key.String(),
			PresetName:      snap.PresetName,
			CustomPrompt:    snap.CustomPrompt,
			OutputReasoning: snap.OutputReasoning,
			TriggerProb:     snap.TriggerProb,
			LastActive:      snap.LastActive.UTC(),
			HistoryJSON:     string(historyJSON),
			UpdatedAt:       now,
		}
		if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
			return fmt.Errorf("%w: save conversation %s: %v", ErrPersistence, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}

	s.logger.DebugContext(ctx, "Saved conversation snapshots", "count", len(snaps))
	return nil
}

func (s *sqlxStore) LoadConversations(ctx context.Context) (map[conversation.Key]conversation.Snapshot, error) {
	var records []ConversationRecord
	if err := s.db.SelectContext(ctx, &records, `SELECT * FROM conversations`); err != nil {
		return nil, fmt.Errorf("%w: load conversations: %v", ErrPersistence, err)
	}

	out := make(map[conversation.Key]conversation.Snapshot, len(records))
	for _, rec := range records {
		key, err := conversation.ParseKey(rec.Key)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping conversation with malformed key", "key", rec.Key, "error", err)
			continue
		}

		var history []conversation.Turn
		if err := json.Unmarshal([]byte(rec.HistoryJSON), &history); err != nil {
			s.logger.WarnContext(ctx, "Skipping conversation with malformed history", "key", rec.Key, "error", err)
			continue
		}

		out[key] = conversation.Snapshot{
			PresetName:      rec.PresetName,
			CustomPrompt:    rec.CustomPrompt,
			OutputReasoning: rec.OutputReasoning,
			TriggerProb:     rec.TriggerProb,
			LastActive:      rec.LastActive,
			History:         history,
		}
	}

	s.logger.InfoContext(ctx, "Loaded conversation snapshots", "count", len(out))
	return out, nil
}

func (s *sqlxStore) LogMessage(ctx context.Context, rec *MessageRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: cannot log nil message", ErrPersistence)
	}
	if rec.ConversationKey == "" {
		return fmt.Errorf("%w: message must have a conversation key", ErrPersistence)
	}

	rec.CreatedAt = time.Now().UTC()

	const query = `
        INSERT INTO messages (conversation_key, sender_id, sender_name, content, from_bot, sent_at, created_at)
        VALUES (:conversation_key, :sender_id, :sender_name, :content, :from_bot, :sent_at, :created_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("%w: log message for %s: %v", ErrPersistence, rec.ConversationKey, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rec.ID = uint(id)
	}
	return nil
}

func (s *sqlxStore) DeleteConversation(ctx context.Context, key conversation.Key) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("%w: delete conversation %s: %v", ErrPersistence, key, err)
	}
	return nil
}

func (s *sqlxStore) RunMaintenance(ctx context.Context) error {
	start := time.Now()
	for _, stmt := range []string{"VACUUM;", "ANALYZE;"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: maintenance %q: %v", ErrPersistence, stmt, err)
		}
	}
	s.logger.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(start))
	return nil
}

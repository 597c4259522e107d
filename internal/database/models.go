package database

import (
	"time"
)

// ConversationRecord is the persisted form of one conversation's state.
// History is stored as a JSON array of {role, content} objects so embedded
// delimiters and unicode survive the round trip untouched.
type ConversationRecord struct {
	Key             string    `db:"key"`
	PresetName      string    `db:"preset_name"`
	CustomPrompt    string    `db:"custom_prompt"`
	OutputReasoning bool      `db:"output_reasoning"`
	TriggerProb     float64   `db:"trigger_prob"`
	LastActive      time.Time `db:"last_active"`
	HistoryJSON     string    `db:"history_json"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// MessageRecord is one row of the raw message audit log: inbound chat
// events and outbound bot replies, kept for debugging and offline analysis.
type MessageRecord struct {
	ID              uint      `db:"id"`
	ConversationKey string    `db:"conversation_key"`
	SenderID        int64     `db:"sender_id"`
	SenderName      string    `db:"sender_name"`
	Content         string    `db:"content"`
	FromBot         bool      `db:"from_bot"`
	SentAt          time.Time `db:"sent_at"`
	CreatedAt       time.Time `db:"created_at"`
}

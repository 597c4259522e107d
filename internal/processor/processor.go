// Package processor implements the per-conversation turn engine: it drains
// queued events one batch at a time, serializes a single completion call
// per conversation, and replays the segmented reply with human-like pacing.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hollowpoint/llmrelay/internal/ai"
	"github.com/hollowpoint/llmrelay/internal/conversation"
	"github.com/hollowpoint/llmrelay/internal/database"
	"github.com/hollowpoint/llmrelay/internal/preset"
	"github.com/hollowpoint/llmrelay/internal/prompt"
)

// Completer performs one completion call. Implemented by ai.Client.
type Completer interface {
	Complete(ctx context.Context, p preset.Preset, systemPrompt string, turns []conversation.Turn) (ai.Reply, error)
}

// Sender delivers one outbound message to a conversation. Delivery is
// fire-and-forget; the processor does not await confirmation.
type Sender interface {
	Send(ctx context.Context, key conversation.Key, text string) error
}

// AuditLogger appends outbound messages to the raw message audit log.
// Implemented by database.Store; a nil logger disables auditing.
type AuditLogger interface {
	LogMessage(ctx context.Context, rec *database.MessageRecord) error
}

// Config tunes the turn engine.
type Config struct {
	// HistoryWindow is how many committed turns accompany each batch. It is
	// independent of, and at most, the history ring capacity.
	HistoryWindow int

	// SegmentDelay is the pause before each reply fragment.
	SegmentDelay time.Duration

	// FailureNotice is the user-visible text posted when a batch fails.
	FailureNotice string
}

// Processor drives the IDLE -> DRAINING -> IDLE cycle for every
// conversation. One drain goroutine exists per conversation at most; the
// draining flag inside conversation.State is the single-flight guard.
type Processor struct {
	registry  *conversation.Registry
	presets   *preset.Registry
	composer  *prompt.Composer
	completer Completer
	sender    Sender
	audit     AuditLogger
	cfg       Config
	logger    *slog.Logger
}

// New wires up a processor. audit may be nil.
func New(
	registry *conversation.Registry,
	presets *preset.Registry,
	composer *prompt.Composer,
	completer Completer,
	sender Sender,
	audit AuditLogger,
	cfg Config,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		registry:  registry,
		presets:   presets,
		composer:  composer,
		completer: completer,
		sender:    sender,
		audit:     audit,
		cfg:       cfg,
		logger:    logger.With("component", "turn_processor"),
	}
}

// Record folds an observed event into the conversation's pending buffer
// without triggering a drain. Untriggered chatter still reaches the model
// as context on the next triggered batch.
func (p *Processor) Record(key conversation.Key, ev conversation.RawEvent) {
	p.registry.GetOrCreate(key).Record(ev)
}

// Trigger records drain work for the event's conversation and starts a
// drain goroutine unless one is already running. Callers are expected to
// have filtered out conversations whose preset is "off".
func (p *Processor) Trigger(ctx context.Context, key conversation.Key, ev conversation.RawEvent) {
	st := p.registry.GetOrCreate(key)
	if st.BeginDrain(ev) {
		go p.drain(ctx, key, st)
	}
}

// drain loops until the conversation's queue is empty. Queue bookkeeping
// and the draining flag are managed inside State so the close is atomic
// with the emptiness check.
func (p *Processor) drain(ctx context.Context, key conversation.Key, st *conversation.State) {
	log := p.logger.With("conversation", key.String())
	log.InfoContext(ctx, "drain started")

	batches := 0
	for {
		if _, ok := st.NextQueued(); !ok {
			break
		}

		batch, ok := st.BeginBatch(p.cfg.HistoryWindow)
		if !ok {
			// Backlog already consumed by an earlier iteration.
			log.DebugContext(ctx, "pending buffer empty, closing drain")
			break
		}

		p.processBatch(ctx, key, st, batch)
		batches++
	}

	log.InfoContext(ctx, "drain finished", "batches", batches)
}

// processBatch runs one completion call for a batch. On failure nothing is
// committed: history and pending events are untouched so the batch is
// retried on the conversation's next trigger.
func (p *Processor) processBatch(ctx context.Context, key conversation.Key, st *conversation.State, batch conversation.Batch) {
	log := p.logger.With("conversation", key.String())

	pst := p.presets.Resolve(batch.PresetName)
	systemPrompt := p.composer.BuildSystemPrompt(batch.CustomPrompt)

	payload, err := p.composer.SerializeEvents(batch.Events)
	if err != nil {
		log.ErrorContext(ctx, "failed to serialize batch", "error", err, "events", len(batch.Events))
		p.notifyFailure(ctx, key, err)
		return
	}

	turns := make([]conversation.Turn, 0, len(batch.History)+1)
	turns = append(turns, batch.History...)
	turns = append(turns, conversation.Turn{Role: conversation.RoleUser, Content: payload})

	log.DebugContext(ctx, "dispatching batch",
		"preset", pst.Name, "events", len(batch.Events), "history_turns", len(batch.History))

	reply, err := p.completer.Complete(ctx, pst, systemPrompt, turns)
	if err != nil {
		log.ErrorContext(ctx, "batch failed, leaving events pending", "error", err)
		p.notifyFailure(ctx, key, err)
		return
	}

	// Commit only after success so user and assistant turns stay paired
	// and a failed call leaves the backlog intact.
	st.CommitUser(payload, batch)

	if batch.OutputReasoning && reply.ReasoningContent != "" {
		p.send(ctx, key, reply.ReasoningContent)
	}

	fragments := prompt.SplitReply(reply.Content)
	log.InfoContext(ctx, "sending reply", "fragments", len(fragments), "total_tokens", reply.TotalTokens)
	for _, frag := range fragments {
		// Pacing is deliberate and not cancellable: an accepted reply is
		// sent in full.
		time.Sleep(p.cfg.SegmentDelay)
		p.send(ctx, key, frag)
	}

	st.CommitAssistant(reply.Content)
}

func (p *Processor) notifyFailure(ctx context.Context, key conversation.Key, cause error) {
	p.send(ctx, key, fmt.Sprintf("%s\n%v", p.cfg.FailureNotice, cause))
}

func (p *Processor) send(ctx context.Context, key conversation.Key, text string) {
	if err := p.sender.Send(ctx, key, text); err != nil {
		p.logger.ErrorContext(ctx, "failed to send message", "conversation", key.String(), "error", err)
		return
	}
	p.auditLog(ctx, key, text)
}

// auditLog records a delivered outbound message; failures are logged and
// otherwise ignored.
func (p *Processor) auditLog(ctx context.Context, key conversation.Key, text string) {
	if p.audit == nil {
		return
	}
	err := p.audit.LogMessage(ctx, &database.MessageRecord{
		ConversationKey: key.String(),
		Content:         text,
		FromBot:         true,
		SentAt:          time.Now().UTC(),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to audit-log outbound message", "conversation", key.String(), "error", err)
	}
}

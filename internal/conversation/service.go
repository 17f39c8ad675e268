// ABOUTME: Service owns the in-memory message list for the signed-in user
// ABOUTME: Mirrors mutations to the remote store and reports failures in-conversation

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/2389/parley/internal/gemini"
	"github.com/2389/parley/internal/store"
)

// Texts shown in place of a reply when the completion service cannot
// produce one, and notices for local failures.
const (
	PlaceholderRateLimited = "You've sent too many requests. Please wait a moment and try again."
	PlaceholderNoReply     = "No response received."
	NoticeMissingAPIKey    = "No API key configured. Set completion.api_key to enable replies."
)

// RecordStore defines what the service needs from persistence
type RecordStore interface {
	Create(ctx context.Context, rec *store.Record) (string, error)
	UpdateText(ctx context.Context, id, text string) error
	Delete(ctx context.Context, id string) error
	DeleteBatch(ctx context.Context, ids []string) error
	ListByIdentity(ctx context.Context, identity string) ([]*store.Record, error)
}

// Completer defines what the service needs from the AI completion layer
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// IdentityProvider defines what the service needs from authentication
type IdentityProvider interface {
	Current(ctx context.Context) (identity string, ok bool)
}

// Service is the single owner of the conversation. It keeps the
// ordered message list in memory, mirrors every mutation to the remote
// store, requests AI replies for outbound user text, and publishes
// change notifications.
//
// Key principle: the list updates first, then the remote call runs.
// Remote failures never escape; they are converted into notices that
// appear in the conversation itself.
type Service struct {
	store     RecordStore
	completer Completer
	identity  IdentityProvider
	logger    *slog.Logger
	notifier  *Notifier

	mu       sync.RWMutex
	messages []*Message
	inFlight int
}

// New creates a conversation service. If logger is nil, slog.Default()
// is used.
func New(recordStore RecordStore, completer Completer, identity IdentityProvider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     recordStore,
		completer: completer,
		identity:  identity,
		logger:    logger.With("component", "conversation"),
		notifier:  NewNotifier(logger),
	}
}

// Send appends the user's text to the conversation, persists it, and
// requests an AI reply. Empty (after trimming) text and the signed-out
// state are silent no-ops. The message appears immediately with
// SyncPending; its ID fills in once the store acknowledges.
func (s *Service) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	identity, ok := s.identity.Current(ctx)
	if !ok {
		s.logger.Debug("send skipped, signed out")
		return
	}

	msg := &Message{
		Text:      text,
		IsUser:    true,
		Timestamp: time.Now(),
		Sync:      SyncPending,
	}
	s.append(msg)

	// The reply is requested regardless of how persistence went: a
	// failed save already produced a notice, and the user still wants
	// an answer.
	s.persist(ctx, identity, msg)

	s.RequestReply(ctx, text)
}

// RequestReply asks the completion service to answer userText and
// appends the outcome as an assistant message. Every branch appends
// exactly one message: the reply, a fixed placeholder, or an error
// text. The busy state is raised for the duration of the call.
//
// When no API key is configured, a local notice is appended instead
// and the completion service is never called.
func (s *Service) RequestReply(ctx context.Context, userText string) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return
	}

	identity, ok := s.identity.Current(ctx)
	if !ok {
		s.logger.Debug("reply skipped, signed out")
		return
	}

	if !s.completer.Configured() {
		s.logger.Warn("completion not configured, skipping reply")
		s.appendNotice(NoticeMissingAPIKey)
		return
	}

	s.beginWork()
	defer s.endWork()

	text, err := s.completer.Complete(ctx, userText)
	if err != nil {
		s.logger.Error("completion failed", "error", err)
	}

	reply := &Message{
		Text:      replyTextFor(text, err),
		IsUser:    false,
		Timestamp: time.Now(),
		Sync:      SyncPending,
	}
	s.append(reply)
	s.persist(ctx, identity, reply)
}

// replyTextFor maps a completion outcome onto the assistant message
// shown to the user.
func replyTextFor(text string, err error) string {
	if err == nil {
		return text
	}

	if errors.Is(err, gemini.ErrNoContent) {
		return PlaceholderNoReply
	}

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return PlaceholderRateLimited
		}
		msg := apiErr.Message
		if msg == "" {
			msg = "Unknown error"
		}
		return fmt.Sprintf("Error %d: %s", apiErr.StatusCode, msg)
	}

	return fmt.Sprintf("Error: %s", err.Error())
}

// Load replaces the in-memory list with the identity's full history
// from the remote store, oldest first. Loaded messages are confirmed
// by definition. A retrieval failure leaves the current list untouched
// and appends a single notice.
func (s *Service) Load(ctx context.Context) {
	identity, ok := s.identity.Current(ctx)
	if !ok {
		s.logger.Debug("load skipped, signed out")
		return
	}

	s.beginWork()
	defer s.endWork()

	records, err := s.store.ListByIdentity(ctx, identity)
	if err != nil {
		s.logger.Error("failed to load history", "error", err)
		s.appendNotice(fmt.Sprintf("Error loading messages: %s", err.Error()))
		return
	}

	messages := make([]*Message, 0, len(records))
	for _, rec := range records {
		messages = append(messages, &Message{
			ID:        rec.ID,
			Text:      rec.Text,
			IsUser:    rec.IsUser,
			Timestamp: rec.Timestamp,
			Sync:      SyncConfirmed,
		})
	}

	s.mu.Lock()
	s.messages = messages
	s.mu.Unlock()

	s.publish(ChangeReplaced, nil)
	s.logger.Debug("history loaded", "identity", identity, "count", len(messages))
}

// UpdateByID edits the text of the message with the given remote ID.
// Empty trimmed text and unknown IDs are silent no-ops. The local edit
// applies immediately; if the remote update then fails, the message is
// marked failed and a notice is appended, but the edit is not rolled
// back.
func (s *Service) UpdateByID(ctx context.Context, id, newText string) {
	newText = strings.TrimSpace(newText)
	if newText == "" || id == "" {
		return
	}

	s.mu.Lock()
	var target *Message
	for _, m := range s.messages {
		if m.ID == id {
			target = m
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		s.logger.Debug("update skipped, unknown id", "id", id)
		return
	}
	target.Text = newText
	target.Sync = SyncPending
	snapshot := *target
	s.mu.Unlock()

	s.publish(ChangeUpdated, &snapshot)

	if err := s.store.UpdateText(ctx, id, newText); err != nil {
		s.logger.Error("failed to update message", "error", err, "id", id)
		s.setSync(target, SyncFailed)
		s.appendNotice(fmt.Sprintf("Error updating message: %s", err.Error()))
		return
	}
	s.setSync(target, SyncConfirmed)
}

// DeleteByID removes the first message with the given remote ID from
// the list, then deletes the remote document. The remote delete runs
// even when the ID was not found locally: the document may still exist
// remotely. Delete failures surface as a notice only.
func (s *Service) DeleteByID(ctx context.Context, id string) {
	if id == "" {
		return
	}

	s.mu.Lock()
	var snapshot *Message
	for i, m := range s.messages {
		if m.ID == id {
			copied := *m
			snapshot = &copied
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if snapshot != nil {
		s.publish(ChangeRemoved, snapshot)
	} else {
		s.logger.Debug("delete: id not in list, removing remotely anyway", "id", id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete message", "error", err, "id", id)
		s.appendNotice(fmt.Sprintf("Error deleting message: %s", err.Error()))
	}
}

// DeleteAll clears the identity's entire conversation: one atomic
// batched delete against the store, then the in-memory list empties
// with a single notification. On failure the list is left as is and a
// notice is appended.
func (s *Service) DeleteAll(ctx context.Context) {
	identity, ok := s.identity.Current(ctx)
	if !ok {
		s.logger.Debug("clear skipped, signed out")
		return
	}

	s.beginWork()
	defer s.endWork()

	records, err := s.store.ListByIdentity(ctx, identity)
	if err != nil {
		s.logger.Error("failed to list messages for clearing", "error", err)
		s.appendNotice(fmt.Sprintf("Error clearing messages: %s", err.Error()))
		return
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}

	if err := s.store.DeleteBatch(ctx, ids); err != nil {
		s.logger.Error("failed to clear messages", "error", err)
		s.appendNotice(fmt.Sprintf("Error clearing messages: %s", err.Error()))
		return
	}

	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()

	s.publish(ChangeCleared, nil)
	s.logger.Info("conversation cleared", "identity", identity, "deleted", len(ids))
}

// Messages returns a snapshot copy of the conversation in order.
func (s *Service) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = *m
	}
	return out
}

// Loading reports whether any remote work is in flight.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Subscribe registers for change notifications. See Notifier.Subscribe.
func (s *Service) Subscribe(ctx context.Context) (<-chan Change, string) {
	return s.notifier.Subscribe(ctx)
}

// Unsubscribe removes a change subscription.
func (s *Service) Unsubscribe(subID string) {
	s.notifier.Unsubscribe(subID)
}

// Close shuts down the notifier. The service must not be used after.
func (s *Service) Close() {
	s.notifier.Close()
}

// persist creates the remote record for msg and back-fills its ID.
// Confirmation is silent: nothing visible changed. On failure the
// message is marked failed and a notice is appended.
func (s *Service) persist(ctx context.Context, identity string, msg *Message) {
	rec := &store.Record{
		Identity:  identity,
		Text:      msg.Text,
		IsUser:    msg.IsUser,
		Timestamp: msg.Timestamp,
	}

	id, err := s.store.Create(ctx, rec)
	if err != nil {
		s.logger.Error("failed to persist message", "error", err)
		s.setSync(msg, SyncFailed)
		s.appendNotice(fmt.Sprintf("Error saving message: %s", err.Error()))
		return
	}

	s.mu.Lock()
	msg.ID = id
	msg.Sync = SyncConfirmed
	s.mu.Unlock()

	s.logger.Debug("message persisted", "id", id)
}

// append adds msg to the end of the list and publishes the change.
func (s *Service) append(msg *Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	snapshot := *msg
	s.mu.Unlock()

	s.publish(ChangeAppended, &snapshot)
}

// appendNotice adds a local, never-persisted assistant notice.
func (s *Service) appendNotice(text string) {
	s.append(&Message{
		Text:      text,
		IsUser:    false,
		Timestamp: time.Now(),
		Sync:      SyncLocal,
	})
}

// setSync records a message's new sync state. The transition itself is
// not published: confirmations change nothing visible, and failures
// are followed by an appended notice.
func (s *Service) setSync(msg *Message, state SyncState) {
	s.mu.Lock()
	msg.Sync = state
	s.mu.Unlock()
}

// beginWork raises the in-flight counter, publishing on the transition
// into the busy state.
func (s *Service) beginWork() {
	s.mu.Lock()
	s.inFlight++
	first := s.inFlight == 1
	s.mu.Unlock()

	if first {
		s.notifier.Publish(Change{Kind: ChangeLoading, Loading: true})
	}
}

// endWork lowers the in-flight counter, publishing on the transition
// out of the busy state.
func (s *Service) endWork() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	last := s.inFlight == 0
	s.mu.Unlock()

	if last {
		s.notifier.Publish(Change{Kind: ChangeLoading, Loading: false})
	}
}

func (s *Service) publish(kind ChangeKind, msg *Message) {
	s.notifier.Publish(Change{Kind: kind, Message: msg, Loading: s.Loading()})
}

package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
)

// Origin identifies which producer submitted a message merge.
type Origin string

const (
	OriginHistoryPage Origin = "history_page"
	OriginLivePush    Origin = "live_push"
	OriginSendEcho    Origin = "send_echo"
)

var (
	ErrMissingID           = errors.New("message has neither id nor client key")
	ErrUnknownConversation = errors.New("conversation not found")
	ErrUnknownMessage      = errors.New("message not found")
)

// Store is the single writer of all conversation state. Collaborators submit
// merge requests through its methods; every transition is applied atomically
// under one lock and can never be observed partially applied.
type Store struct {
	mu     sync.Mutex
	selfID string

	conversations []*models.Conversation // most-recent-first
	messages      map[string][]models.Message
	cursors       map[string]models.PageCursor
	typing        map[string]map[string]struct{}
	online        map[string]struct{}
	unread        map[string]int
	unreadTotal   int
	drafts        map[string]string
	activeID      string
	replyTo       *models.ReplyTarget

	now func() time.Time
}

// New creates an empty store for the given local user.
func New(selfID string) *Store {
	return &Store{
		selfID:   selfID,
		messages: make(map[string][]models.Message),
		cursors:  make(map[string]models.PageCursor),
		typing:   make(map[string]map[string]struct{}),
		online:   make(map[string]struct{}),
		unread:   make(map[string]int),
		drafts:   make(map[string]string),
		now:      time.Now,
	}
}

// SelfID returns the local user id.
func (s *Store) SelfID() string { return s.selfID }

// MergeIncoming is the single entry point by which any source (history page,
// live push, send echo) introduces or updates a message. A message already
// present (matched by id or correlation key) is updated in place without
// changing its position or touching unread counters; a history-page message
// is prepended; anything else is appended, bumps the conversation's summary,
// moves it to the front of the list, and increments unread counters unless
// the conversation is active or the message is self-authored.
func (s *Store) MergeIncoming(conversationID string, msg models.Message, origin Origin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ID == "" && msg.ClientKey == "" {
		observability.IncIntegrityMismatch("missing_id")
		return ErrMissingID
	}
	conv := s.findConversation(conversationID)
	if conv == nil {
		return ErrUnknownConversation
	}

	observability.IncMerge(string(origin))

	seq := s.messages[conversationID]
	if idx := findMessage(seq, msg.ID, msg.ClientKey); idx >= 0 {
		updateInPlace(&seq[idx], msg)
		observability.IncDuplicateSuppressed()
		return nil
	}

	if msg.Status == "" {
		msg.Status = models.StatusSent
	}
	msg.ConversationID = conversationID

	if origin == OriginHistoryPage {
		// Older history never reorders the conversation list and never
		// counts as unread.
		s.messages[conversationID] = append([]models.Message{msg}, seq...)
		return nil
	}

	s.messages[conversationID] = append(seq, msg)

	last := msg
	conv.LastMessage = &last
	conv.UpdatedAt = s.now()
	s.moveToFront(conversationID)

	if conversationID != s.activeID && msg.SenderID != s.selfID {
		s.unread[conversationID]++
		s.unreadTotal++
		observability.SetUnreadTotal(s.unreadTotal)
	}
	return nil
}

func updateInPlace(existing *models.Message, incoming models.Message) {
	if incoming.ID != "" {
		existing.ID = incoming.ID
	}
	if incoming.ClientKey != "" {
		existing.ClientKey = incoming.ClientKey
	}
	if incoming.Content != "" {
		existing.Content = incoming.Content
	}
	if incoming.Reactions != nil {
		existing.Reactions = incoming.Reactions
	}
	if incoming.Status != "" {
		existing.Status = incoming.Status
	}
	if incoming.ReplyTo != nil {
		existing.ReplyTo = incoming.ReplyTo
	}
	if incoming.Read {
		existing.Read = true
	}
	if incoming.Deleted {
		existing.Deleted = true
		existing.Content = models.DeletedPlaceholder
	}
	if !incoming.CreatedAt.IsZero() {
		existing.CreatedAt = incoming.CreatedAt
	}
}

// ApplyHistoryPage applies one fetched page. Page 1 replaces the sequence
// outright; later pages prepend strictly older messages, dropping any id
// already present, and advance the pagination cursor.
func (s *Store) ApplyHistoryPage(conversationID string, msgs []models.Message, page int, hasMore bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findConversation(conversationID) == nil {
		return ErrUnknownConversation
	}

	normalized := make([]models.Message, len(msgs))
	for i, m := range msgs {
		if m.Status == "" {
			m.Status = models.StatusSent
		}
		m.ConversationID = conversationID
		normalized[i] = m
	}

	if page <= 1 {
		s.messages[conversationID] = normalized
	} else {
		existing := s.messages[conversationID]
		seen := make(map[string]struct{}, len(existing))
		for _, m := range existing {
			seen[m.ID] = struct{}{}
		}
		fresh := make([]models.Message, 0, len(normalized))
		for _, m := range normalized {
			if _, dup := seen[m.ID]; dup {
				observability.IncDuplicateSuppressed()
				continue
			}
			fresh = append(fresh, m)
		}
		s.messages[conversationID] = append(fresh, existing...)
	}

	s.cursors[conversationID] = models.PageCursor{Page: page, HasMore: hasMore}
	return nil
}

// SetConversations replaces the conversation list (typically from the initial
// chats fetch) and seeds unread counters from the server-provided counts.
// Loaded message sequences, drafts and typing state are kept.
func (s *Store) SetConversations(convs []models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make([]*models.Conversation, 0, len(convs))
	s.unread = make(map[string]int, len(convs))
	s.unreadTotal = 0
	for _, c := range convs {
		conv := c
		s.conversations = append(s.conversations, &conv)
		s.unread[conv.ID] = conv.UnreadCount
		s.unreadTotal += conv.UnreadCount
	}
	observability.SetUnreadTotal(s.unreadTotal)
}

// UpsertConversation updates a known conversation in place or inserts a new
// one at the front of the list.
func (s *Store) UpsertConversation(conv models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.findConversation(conv.ID); existing != nil {
		*existing = conv
		return
	}
	c := conv
	s.conversations = append([]*models.Conversation{&c}, s.conversations...)
	if _, ok := s.unread[c.ID]; !ok {
		s.unread[c.ID] = c.UnreadCount
		s.unreadTotal += c.UnreadCount
		observability.SetUnreadTotal(s.unreadTotal)
	}
}

// SetActiveConversation switches the active conversation, zeroing its unread
// counter and decrementing the total by the same amount in one transition.
// Switching also clears the reply pointer. An empty id deactivates.
func (s *Store) SetActiveConversation(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID != "" && s.findConversation(conversationID) == nil {
		return ErrUnknownConversation
	}
	if conversationID != s.activeID {
		s.replyTo = nil
	}
	s.activeID = conversationID
	if conversationID != "" {
		if n := s.unread[conversationID]; n > 0 {
			s.unreadTotal -= n
			s.unread[conversationID] = 0
			observability.SetUnreadTotal(s.unreadTotal)
		}
	}
	return nil
}

// ActiveConversation returns the id of the active conversation, if any.
func (s *Store) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// MarkSendFailed flags a provisional entry as failed so the UI can offer
// retry or discard; the entry is never removed silently.
func (s *Store) MarkSendFailed(conversationID, clientKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.messages[conversationID]
	idx := findMessage(seq, "", clientKey)
	if idx < 0 {
		return ErrUnknownMessage
	}
	seq[idx].Status = models.StatusFailed
	return nil
}

// SetReactions replaces the reaction list of a message, located by its
// globally unique id across all loaded conversations.
func (s *Store) SetReactions(messageID string, reactions []models.Reaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seq := range s.messages {
		if idx := findMessage(seq, messageID, ""); idx >= 0 {
			s.messages[id][idx].Reactions = reactions
			return nil
		}
	}
	return ErrUnknownMessage
}

// MarkRead sets the read flag on the given messages. Reapplying a receipt is
// a no-op.
func (s *Store) MarkRead(conversationID string, messageIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findConversation(conversationID) == nil {
		return ErrUnknownConversation
	}
	ids := make(map[string]struct{}, len(messageIDs))
	for _, id := range messageIDs {
		ids[id] = struct{}{}
	}
	seq := s.messages[conversationID]
	for i := range seq {
		if _, ok := ids[seq[i].ID]; ok {
			seq[i].Read = true
		}
	}
	return nil
}

// MarkDeleted flags a message as deleted and swaps its content for the
// placeholder shown in place of removed messages.
func (s *Store) MarkDeleted(conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.messages[conversationID]
	idx := findMessage(seq, messageID, "")
	if idx < 0 {
		return ErrUnknownMessage
	}
	seq[idx].Deleted = true
	seq[idx].Content = models.DeletedPlaceholder
	return nil
}

// SetTyping applies a typing on/off signal for one user. Membership is a pure
// boolean set: signals are idempotent and the store never expires entries on
// its own; the producing side owns the off-signal.
func (s *Store) SetTyping(conversationID, userID string, isTyping bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findConversation(conversationID) == nil {
		return ErrUnknownConversation
	}
	set := s.typing[conversationID]
	if isTyping {
		if set == nil {
			set = make(map[string]struct{})
			s.typing[conversationID] = set
		}
		set[userID] = struct{}{}
		return nil
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(s.typing, conversationID)
	}
	return nil
}

// TypingUsers returns the users currently marked as typing in a conversation.
func (s *Store) TypingUsers(conversationID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.typing[conversationID]
	users := make([]string, 0, len(set))
	for id := range set {
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

// SetOnlineUsers replaces the presence view and refreshes the online flag on
// conversation participants. Message and unread state are untouched.
func (s *Store) SetOnlineUsers(userIDs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.online = make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		s.online[id] = struct{}{}
	}
	for _, conv := range s.conversations {
		for i := range conv.Participants {
			_, ok := s.online[conv.Participants[i].ID]
			conv.Participants[i].Online = ok
		}
	}
}

// IsOnline reports whether a user is in the current presence set.
func (s *Store) IsOnline(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

// SaveDraft stores unsent input text for a conversation.
func (s *Store) SaveDraft(conversationID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		delete(s.drafts, conversationID)
		return
	}
	s.drafts[conversationID] = text
}

// Draft returns the saved draft for a conversation, if any.
func (s *Store) Draft(conversationID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[conversationID]
}

// ClearDraft removes the draft for a conversation.
func (s *Store) ClearDraft(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, conversationID)
}

// SetReplyTo records the active reply target for the composing conversation.
func (s *Store) SetReplyTo(target models.ReplyTarget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := target
	s.replyTo = &t
}

// ReplyTo returns a copy of the active reply target, or nil.
func (s *Store) ReplyTo() *models.ReplyTarget {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replyTo == nil {
		return nil
	}
	t := *s.replyTo
	return &t
}

// ClearReplyTo drops the active reply target.
func (s *Store) ClearReplyTo() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replyTo = nil
}

// Unread returns the unread counter for one conversation.
func (s *Store) Unread(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[conversationID]
}

// TotalUnread returns the total unread counter across all conversations.
func (s *Store) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadTotal
}

// UnreadByConversation returns a copy of all per-conversation counters.
func (s *Store) UnreadByConversation() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.unread))
	for id, n := range s.unread {
		out[id] = n
	}
	return out
}

// Conversations returns the conversation list in most-recent-first order.
func (s *Store) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		c := *conv
		c.UnreadCount = s.unread[conv.ID]
		out = append(out, c)
	}
	return out
}

// Conversation returns one conversation by id.
func (s *Store) Conversation(conversationID string) (models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.findConversation(conversationID)
	if conv == nil {
		return models.Conversation{}, false
	}
	c := *conv
	c.UnreadCount = s.unread[conversationID]
	return c, true
}

// HasConversation reports whether a conversation is loaded.
func (s *Store) HasConversation(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findConversation(conversationID) != nil
}

// Messages returns a copy of a conversation's message sequence.
func (s *Store) Messages(conversationID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.messages[conversationID]
	out := make([]models.Message, len(seq))
	copy(out, seq)
	return out
}

// Message locates a message by its globally unique id.
func (s *Store) Message(messageID string) (models.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seq := range s.messages {
		if idx := findMessage(seq, messageID, ""); idx >= 0 {
			return seq[idx], true
		}
	}
	return models.Message{}, false
}

// Cursor returns the pagination cursor for a conversation.
func (s *Store) Cursor(conversationID string) (models.PageCursor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.cursors[conversationID]
	return cur, ok
}

// Reset drops all state (logout).
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = nil
	s.messages = make(map[string][]models.Message)
	s.cursors = make(map[string]models.PageCursor)
	s.typing = make(map[string]map[string]struct{})
	s.online = make(map[string]struct{})
	s.unread = make(map[string]int)
	s.unreadTotal = 0
	s.drafts = make(map[string]string)
	s.activeID = ""
	s.replyTo = nil
	observability.SetUnreadTotal(0)
}

func (s *Store) findConversation(conversationID string) *models.Conversation {
	for _, conv := range s.conversations {
		if conv.ID == conversationID {
			return conv
		}
	}
	return nil
}

func (s *Store) moveToFront(conversationID string) {
	for i, conv := range s.conversations {
		if conv.ID == conversationID {
			if i > 0 {
				s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
				s.conversations = append([]*models.Conversation{conv}, s.conversations...)
			}
			return
		}
	}
}

func findMessage(seq []models.Message, id, clientKey string) int {
	for i := range seq {
		if id != "" && seq[i].ID == id {
			return i
		}
		if clientKey != "" && seq[i].ClientKey == clientKey {
			return i
		}
	}
	return -1
}

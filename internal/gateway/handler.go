package gateway

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"chat-sync/internal/api"
	"chat-sync/internal/engine"
	"chat-sync/internal/models"
	"chat-sync/internal/observability"
	"chat-sync/internal/store"
)

// Handler exposes the conversation store to the UI collaborator over a local
// HTTP surface. All writes go through the session's documented operations;
// the UI never mutates state directly.
type Handler struct {
	session *engine.Session
}

// NewHandler builds a Handler.
func NewHandler(session *engine.Session) *Handler {
	return &Handler{session: session}
}

// ListConversations returns the conversation list, most recent first, with
// unread counts.
func (h *Handler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversations": h.session.Store().Conversations()})
}

// RefreshConversations re-fetches the conversation list from the backend.
func (h *Handler) RefreshConversations(c *gin.Context) {
	if err := h.session.Loader().LoadConversations(c.Request.Context()); err != nil {
		respondAPIError(c, err, "failed to load conversations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": h.session.Store().Conversations()})
}

// StartDirectChat creates or resumes a direct conversation.
func (h *Handler) StartDirectChat(c *gin.Context) {
	var req struct {
		ParticipantID string `json:"participant_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.session.StartDirectChat(c.Request.Context(), req.ParticipantID)
	if err != nil {
		respondAPIError(c, err, "could not create chat")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// StartGroupChat creates a group conversation.
func (h *Handler) StartGroupChat(c *gin.Context) {
	var req struct {
		Name         string   `json:"name" binding:"required"`
		Participants []string `json:"participants" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.session.StartGroupChat(c.Request.Context(), req.Name, req.Participants)
	if err != nil {
		respondAPIError(c, err, "could not create group")
		return
	}
	c.JSON(http.StatusOK, conv)
}

// OpenConversation activates a conversation and loads its first page.
func (h *Handler) OpenConversation(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	if err := h.session.OpenConversation(c.Request.Context(), conversationID); err != nil {
		if errors.Is(err, store.ErrUnknownConversation) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		respondAPIError(c, err, "failed to open conversation")
		return
	}

	st := h.session.Store()
	cursor, _ := st.Cursor(conversationID)
	c.JSON(http.StatusOK, gin.H{
		"messages": st.Messages(conversationID),
		"cursor":   cursor,
		"draft":    st.Draft(conversationID),
	})
}

// CloseConversation deactivates a conversation and leaves its room.
func (h *Handler) CloseConversation(c *gin.Context) {
	if err := h.session.CloseConversation(c.Param("conversation_id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close conversation"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetMessages returns the loaded sequence; a page query parameter triggers a
// history load first.
func (h *Handler) GetMessages(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	st := h.session.Store()

	if pageParam := c.Query("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		if _, err := h.session.Loader().LoadPage(c.Request.Context(), conversationID, page); err != nil {
			if errors.Is(err, store.ErrUnknownConversation) {
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			respondAPIError(c, err, "failed to load messages")
			return
		}
	} else if !st.HasConversation(conversationID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	cursor, _ := st.Cursor(conversationID)
	c.JSON(http.StatusOK, gin.H{
		"messages": st.Messages(conversationID),
		"cursor":   cursor,
		"typing":   st.TypingUsers(conversationID),
	})
}

// PostMessage sends a message through the optimistic send path.
func (h *Handler) PostMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		Content string `json:"content"`
		Type    string `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.session.Sender().Send(c.Request.Context(), conversationID, req.Content, models.MessageType(req.Type))
	if err != nil {
		if errors.Is(err, store.ErrUnknownConversation) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.publishSendFailure(c, conversationID, err)
		respondAPIError(c, err, "failed to send message")
		return
	}
	if msg.ID == "" {
		// Blank content is a UI guard, not an error.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage removes a message for everyone.
func (h *Handler) DeleteMessage(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	messageID := c.Param("message_id")

	if err := h.session.DeleteMessage(c.Request.Context(), conversationID, messageID); err != nil {
		respondAPIError(c, err, "could not delete message")
		return
	}
	c.Status(http.StatusNoContent)
}

// React toggles a reaction on a message.
func (h *Handler) React(c *gin.Context) {
	messageID := c.Param("message_id")

	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reactions, err := h.session.React(c.Request.Context(), messageID, req.Emoji)
	if err != nil {
		respondAPIError(c, err, "failed to add reaction")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reactions": reactions})
}

// MarkRead reports messages as read.
func (h *Handler) MarkRead(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		MessageIDs []string `json:"message_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.MarkRead(c.Request.Context(), conversationID, req.MessageIDs); err != nil {
		respondAPIError(c, err, "failed to mark as read")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetDraft returns the saved draft for a conversation.
func (h *Handler) GetDraft(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"draft": h.session.Store().Draft(c.Param("conversation_id"))})
}

// PutDraft stores the in-progress input text.
func (h *Handler) PutDraft(c *gin.Context) {
	var req struct {
		Draft string `json:"draft"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.session.Store().SaveDraft(c.Param("conversation_id"), req.Draft)
	c.Status(http.StatusNoContent)
}

// SetReply points the composer at a message to reply to.
func (h *Handler) SetReply(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		MessageID string `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.session.Reply(conversationID, req.MessageID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}
	c.JSON(http.StatusOK, h.session.Store().ReplyTo())
}

// ClearReply drops the active reply pointer.
func (h *Handler) ClearReply(c *gin.Context) {
	h.session.Store().ClearReplyTo()
	c.Status(http.StatusNoContent)
}

// Typing forwards the local user's typing signal; the on-signal arms the
// idle timer that emits the off-signal automatically.
func (h *Handler) Typing(c *gin.Context) {
	conversationID := c.Param("conversation_id")

	var req struct {
		Typing bool `json:"typing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Typing {
		h.session.Typing().Keystroke(conversationID)
	} else {
		h.session.Typing().Stop(conversationID)
	}
	c.Status(http.StatusAccepted)
}

// Unread returns the per-conversation and total unread counters.
func (h *Handler) Unread(c *gin.Context) {
	st := h.session.Store()
	c.JSON(http.StatusOK, gin.H{
		"total":         st.TotalUnread(),
		"conversations": st.UnreadByConversation(),
	})
}

// Search runs a server-side search in one conversation.
func (h *Handler) Search(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query"})
		return
	}

	results, err := h.session.Search(c.Request.Context(), conversationID, query)
	if err != nil {
		respondAPIError(c, err, "search failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) publishSendFailure(c *gin.Context, conversationID string, err error) {
	traceID := trace.SpanContextFromContext(c.Request.Context()).TraceID().String()
	headers := observability.BuildHeaders(requestIDFromContext(c), traceID)
	_ = observability.PublishEvent(c.Request.Context(), "sync_events.send", observability.EventEnvelope{
		EventType: "sync_events",
		EventName: "send_failure",
		Payload: map[string]interface{}{
			"conversation_id": conversationID,
			"reason":          err.Error(),
		},
	}, headers)
}

func respondAPIError(c *gin.Context, err error, fallback string) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

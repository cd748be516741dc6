package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/chat-router/internal/chat"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/server/middleware"
	"github.com/nulzo/chat-router/internal/server/validator"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/pkg/api"
)

// TitleHeader carries a chat title generated during a reply.
const TitleHeader = "X-Chat-Title"

type ChatHandler struct {
	chats     *chat.Service
	validator *validator.Validator
}

func NewChatHandler(chats *chat.Service, v *validator.Validator) *ChatHandler {
	return &ChatHandler{chats: chats, validator: v}
}

func (h *ChatHandler) List(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	chats, err := h.chats.List(c.Request.Context(), sess.User.ID)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to list chats", err))
		return
	}

	out := api.ChatList{Chats: make([]api.Chat, len(chats))}
	for i := range chats {
		out.Chats[i] = toChat(&chats[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *ChatHandler) Create(c *gin.Context) {
	var req api.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}
	sess, _ := middleware.CurrentSession(c)

	created, err := h.chats.Create(c.Request.Context(), sess.User.ID, req.Message)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toChat(created))
}

func (h *ChatHandler) Get(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	found, err := h.chats.Get(c.Request.Context(), sess.User.ID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toChat(found))
}

func (h *ChatHandler) Delete(c *gin.Context) {
	sess, _ := middleware.CurrentSession(c)

	if err := h.chats.Delete(c.Request.Context(), sess.User.ID, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Reply runs one chat turn and streams the assistant text back in the
// data-stream format.
func (h *ChatHandler) Reply(c *gin.Context) {
	var req api.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(api.ValidationError(h.validator.ParseError(err)))
		return
	}
	sess, _ := middleware.CurrentSession(c)

	turns := make([]llm.Turn, len(req.Messages))
	for i, m := range req.Messages {
		turns[i] = llm.Turn{Role: llm.Role(m.Role), Content: m.Content}
	}

	reply, err := h.chats.Reply(c.Request.Context(), sess.User.ID, c.Param("id"), chat.ReplyRequest{
		Model:    req.Model,
		Messages: turns,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	header := c.Writer.Header()
	header.Set("Content-Type", chat.ContentType)
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Accel-Buffering", "no")
	if reply.Title != "" {
		header.Set(TitleHeader, reply.Title)
	}
	c.Status(http.StatusOK)

	// the channel closes early if the client goes away
	for chunk := range reply.Chunks {
		if err := chat.WriteChunk(c.Writer, chunk); err != nil {
			return
		}
		c.Writer.Flush()
	}
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrChatNotFound):
		_ = c.Error(api.NotFoundError("Chat not found"))
	case errors.Is(err, chat.ErrEmptyMessage):
		_ = c.Error(api.BadRequestError("Message is required"))
	default:
		_ = c.Error(api.InternalError("Failed to process chat", err))
	}
}

func toChat(m *model.Chat) api.Chat {
	out := api.Chat{ID: m.ID, Title: m.Title, CreatedAt: m.CreatedAt}
	for _, msg := range m.Messages {
		out.Messages = append(out.Messages, api.Message{
			ID:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}
	return out
}

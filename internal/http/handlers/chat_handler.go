// Chat HTTP handlers.
//
// This file declares the service contracts the HTTP layer consumes, the
// Handlers value the router mounts, and POST /chat.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/services"
)

// ChatService answers message given the earlier turns, oldest first.
type ChatService interface {
	Reply(ctx context.Context, message string, history []domain.ChatTurn) (*domain.ChatReply, error)
}

// FeedService returns the latest publication posts.
type FeedService interface {
	Latest(ctx context.Context) (*domain.Feed, error)
}

// FeedbackService relays website feedback.
type FeedbackService interface {
	// Submit validates and delivers one submission.
	Submit(ctx context.Context, sub domain.FeedbackSubmission) error
}

// IdempotencyRecorder remembers that (clientKey, key) completed with status.
type IdempotencyRecorder interface {
	Remember(ctx context.Context, clientKey, key string, status int) error
}

// Handlers holds the three endpoints.
type Handlers struct {
	chatSvc ChatService
	feedSvc FeedService
	fbSvc   FeedbackService

	// Idem is optional; when set, successful feedback submissions carrying an
	// Idempotency-Key are remembered so retries are not sent twice.
	Idem IdempotencyRecorder
}

// New binds the handlers to their services. Idem is set separately.
func New(chatSvc ChatService, feedSvc FeedService, fbSvc FeedbackService) *Handlers {
	return &Handlers{chatSvc: chatSvc, feedSvc: feedSvc, fbSvc: fbSvc}
}

// ChatRequest is the JSON payload for the chat endpoint.
type ChatRequest struct {
	// Message is the visitor's new message.
	Message string `json:"message" example:"What is the Safeguard Loop?"`
	// History holds earlier turns, oldest first. Only the most recent turns are forwarded.
	History []domain.ChatTurn `json:"history"`
}

// Chat godoc
// @ID          chat
// @Summary     Ask LoopsAI
// @Description Sends the message and recent history to the configured model and returns its reply.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.ChatRequest  true  "Chat payload"
//
// @Success     200  {object}  domain.ChatReply
// @Failure     400  {object}  handlers.ErrorResponse  "Message is required"
// @Failure     405  {object}  handlers.ErrorResponse  "Method not allowed"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Upstream failure"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, MsgMessageRequired, err)
		return
	}

	reply, err := h.chatSvc.Reply(c.Request.Context(), req.Message, req.History)
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			fail(c, http.StatusBadRequest, MsgMessageRequired, err)
			return
		}
		fail(c, http.StatusInternalServerError, MsgChatFailed, err)
		return
	}

	ok(c, http.StatusOK, reply)
}

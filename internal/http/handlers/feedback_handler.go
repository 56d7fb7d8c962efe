// Feedback HTTP handler.
//
// This file exposes the website feedback form endpoint:
//   - POST /feedback   (validate, then email the site owner)
//
// Rate limiting and Idempotency-Key validation run as middleware before this
// handler. A request recognized as a replay of a completed submission gets the
// success body again without a second email.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/trustedloops-edge/internal/domain"
	"github.com/tbourn/trustedloops-edge/internal/http/middleware"
	"github.com/tbourn/trustedloops-edge/internal/services"
)

// FeedbackRequest is the JSON payload for the feedback form.
type FeedbackRequest struct {
	Name    string `json:"name" example:"Ada"`
	Email   string `json:"email" example:"ada@example.com"`
	Message string `json:"message" example:"Loved the manifesto."`
}

// FeedbackResponse acknowledges a delivered submission.
type FeedbackResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Thank you for your feedback!"`
}

// Feedback godoc
// @ID          feedback
// @Summary     Send feedback
// @Description Emails a feedback form submission to the site owner. Limited to a few submissions per client per hour.
// @Tags        Feedback
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string                    false  "Retry-safe key"  example(7c1f0e1a-3b2d-4e55-9a8c-1d2e3f4a5b6c)
// @Param       body             body    handlers.FeedbackRequest  true   "Feedback payload"
//
// @Success     200  {object}  handlers.FeedbackResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing field or invalid email"
// @Failure     405  {object}  handlers.ErrorResponse  "Method not allowed"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many submissions"
// @Failure     500  {object}  handlers.ErrorResponse  "Delivery failed"
// @Router      /feedback [post]
func (h *Handlers) Feedback(c *gin.Context) {
	if middleware.IsReplay(c) {
		ok(c, http.StatusOK, thanks())
		return
	}

	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, MsgFieldsRequired, err)
		return
	}

	err := h.fbSvc.Submit(c.Request.Context(), domain.FeedbackSubmission{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	switch {
	case err == nil:
	case errors.Is(err, services.ErrMissingField):
		fail(c, http.StatusBadRequest, MsgFieldsRequired, nil)
		return
	case errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, MsgInvalidEmail, nil)
		return
	default:
		fail(c, http.StatusInternalServerError, MsgSendFailed, err)
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.Idem != nil {
		if rerr := h.Idem.Remember(c.Request.Context(), middleware.ClientKey(c), key, http.StatusOK); rerr != nil {
			middleware.LoggerFrom(c).Warn().Err(rerr).Msg("idempotency record failed")
		}
	}
	ok(c, http.StatusOK, thanks())
}

func thanks() FeedbackResponse {
	return FeedbackResponse{Success: true, Message: MsgFeedbackThanks}
}

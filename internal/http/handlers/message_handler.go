// Message HTTP handlers.
//
//   - GET    /messages  (conversation log)
//   - POST   /messages  (ask a question)
//   - DELETE /messages  (start over)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/completion"
	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/services"
)

// PostMessageRequest is the JSON payload for asking a question.
type PostMessageRequest struct {
	Text string `json:"text" binding:"required" example:"What projects has she built?"`
}

// ListMessagesResponse wraps the conversation log.
type ListMessagesResponse struct {
	Messages []domain.Message `json:"messages"`
	Language string           `json:"language"`
}

func (h *Handlers) listResponse(c *gin.Context) {
	ctx := c.Request.Context()
	msgs, err := h.chat.History(ctx)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, ListMessagesResponse{Messages: msgs, Language: h.chat.Language(ctx)})
}

// ListMessages godoc
// @Summary     Conversation log
// @Tags        Messages
// @Produce     json
// @Success     200  {object}  handlers.ListMessagesResponse
// @Router      /messages [get]
func (h *Handlers) ListMessages(c *gin.Context) { h.listResponse(c) }

// PostMessage godoc
// @Summary     Ask a question
// @Description Resolves the question against canned answers, then the completion endpoint. Both turns are appended on success only.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.PostMessageRequest  true  "Question"
// @Success     201   {object}  services.SendResult
// @Failure     400   {object}  handlers.ErrorResponse
// @Failure     409   {object}  handlers.ErrorResponse  "Another question is in flight"
// @Failure     502   {object}  handlers.ErrorResponse  "Completion endpoint failed"
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.chat.Send(c.Request.Context(), req.Text)
	if err != nil {
		var ce *completion.CompletionError
		switch {
		case errors.Is(err, services.ErrEmptyInput):
			fail(c, http.StatusBadRequest, ErrCodeEmptyInput, "question is empty")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeInputTooLong, "question is too long")
		case errors.Is(err, services.ErrBusy):
			fail(c, http.StatusConflict, ErrCodeBusy, "a response is already in progress")
		case errors.As(err, &ce):
			fail(c, http.StatusBadGateway, ErrCodeCompletionFailed, "the assistant is unavailable, please try again")
		case failService(c, err):
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, res)
}

// ResetMessages godoc
// @Summary     Clear the conversation
// @Tags        Messages
// @Success     200  {object}  handlers.ListMessagesResponse  "Fresh log with the welcome message"
// @Router      /messages [delete]
func (h *Handlers) ResetMessages(c *gin.Context) {
	if err := h.chat.Reset(c.Request.Context()); err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	h.listResponse(c)
}

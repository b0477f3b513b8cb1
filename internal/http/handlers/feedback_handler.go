// Feedback HTTP handler:
//   - POST /messages/{index}/feedback
//
// Only assistant replies can be rated. The log keeps the first rating; every
// submission still reaches the analytics aggregator.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/services"
)

// LeaveFeedbackRequest is the JSON payload for rating a reply.
type LeaveFeedbackRequest struct {
	Helpful *bool `json:"helpful" binding:"required" example:"true"`
}

// LeaveFeedbackResponse reports whether the log recorded the rating.
type LeaveFeedbackResponse struct {
	Applied bool `json:"applied"`
}

// LeaveFeedback godoc
// @Summary     Rate an assistant reply
// @Tags        Feedback
// @Accept      json
// @Produce     json
// @Param       index  path      int                            true  "Message position"
// @Param       body   body      handlers.LeaveFeedbackRequest  true  "Rating"
// @Success     200    {object}  handlers.LeaveFeedbackResponse
// @Failure     403    {object}  handlers.ErrorResponse  "Visitor messages cannot be rated"
// @Failure     404    {object}  handlers.ErrorResponse
// @Router      /messages/{index}/feedback [post]
func (h *Handlers) LeaveFeedback(c *gin.Context) {
	idx, valid := indexParam(c)
	if !valid {
		return
	}
	var req LeaveFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "helpful must be true or false")
		return
	}

	applied, err := h.chat.Feedback(c.Request.Context(), idx, *req.Helpful)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrForbiddenFeedback):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot leave feedback on this message")
		case failService(c, err):
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, LeaveFeedbackResponse{Applied: applied})
}

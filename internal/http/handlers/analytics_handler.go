// Analytics HTTP handlers:
//   - GET    /analytics           (lifetime counters)
//   - GET    /analytics/feedback  (feedback log)
//   - DELETE /analytics           (reset)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/domain"
)

// FeedbackLogResponse wraps the feedback records in insertion order.
type FeedbackLogResponse struct {
	Records []domain.FeedbackRecord `json:"records"`
}

// GetAnalytics godoc
// @Summary     Usage counters
// @Tags        Analytics
// @Produce     json
// @Success     200  {object}  domain.AnalyticsSnapshot
// @Router      /analytics [get]
func (h *Handlers) GetAnalytics(c *gin.Context) {
	ok(c, http.StatusOK, h.analytics.Snapshot())
}

// GetFeedbackLog returns every rating recorded so far.
func (h *Handlers) GetFeedbackLog(c *gin.Context) {
	recs := h.analytics.Feedback()
	if recs == nil {
		recs = []domain.FeedbackRecord{}
	}
	ok(c, http.StatusOK, FeedbackLogResponse{Records: recs})
}

// ClearAnalytics resets counters and the feedback log.
func (h *Handlers) ClearAnalytics(c *gin.Context) {
	if err := h.analytics.Clear(c.Request.Context()); err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

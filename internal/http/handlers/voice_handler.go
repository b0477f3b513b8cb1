// Read-aloud HTTP handlers:
//   - GET    /voice                    (capabilities and default prosody)
//   - POST   /messages/{index}/speak   (toggle playback)
//   - DELETE /messages/{index}/speak   (playback ended on the client)
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/domain"
	"github.com/tbourn/portfolio-assistant/internal/voice"
)

// SpeakRequest optionally lists the voices the browser offers.
type SpeakRequest struct {
	Voices []string `json:"voices"`
}

// SpeakResponse reports the playback state after the toggle.
type SpeakResponse struct {
	Speaking  bool             `json:"speaking"`
	Utterance *voice.Utterance `json:"utterance,omitempty"`
}

// VoiceResponse describes the speech capabilities of this deployment.
// Recognition always runs in the browser.
type VoiceResponse struct {
	Synthesis bool    `json:"synthesis"`
	Lang      string  `json:"lang"`
	Rate      float64 `json:"rate"`
	Pitch     float64 `json:"pitch"`
	Volume    float64 `json:"volume"`
}

// Voice returns the read-aloud capability and default prosody.
func (h *Handlers) Voice(c *gin.Context) {
	ok(c, http.StatusOK, VoiceResponse{
		Synthesis: h.narrator != nil,
		Lang:      voice.DefaultLang,
		Rate:      voice.DefaultRate,
		Pitch:     voice.DefaultPitch,
		Volume:    voice.DefaultVolume,
	})
}

// Speak godoc
// @Summary     Toggle read-aloud for an assistant reply
// @Tags        Voice
// @Accept      json
// @Produce     json
// @Param       index  path      int                    true   "Message position"
// @Param       body   body      handlers.SpeakRequest  false  "Available voices"
// @Success     200    {object}  handlers.SpeakResponse
// @Failure     501    {object}  handlers.ErrorResponse  "Speech synthesis not available"
// @Router      /messages/{index}/speak [post]
func (h *Handlers) Speak(c *gin.Context) {
	idx, valid := indexParam(c)
	if !valid {
		return
	}
	if h.narrator == nil {
		fail(c, http.StatusNotImplemented, ErrCodeNotSupported, "speech synthesis is not supported")
		return
	}
	var req SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	msgs, err := h.chat.History(ctx)
	if err != nil {
		if !failService(c, err) {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	if idx >= len(msgs) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		return
	}
	if msgs[idx].Sender != domain.SenderAssistant {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "only assistant replies can be read aloud")
		return
	}

	u, speaking, err := h.narrator.Toggle(ctx, idx, msgs[idx].Text, req.Voices)
	if err != nil {
		if errors.Is(err, voice.ErrNotSupported) {
			fail(c, http.StatusNotImplemented, ErrCodeNotSupported, "speech synthesis is not supported")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	resp := SpeakResponse{Speaking: speaking}
	if speaking {
		resp.Utterance = &u
	}
	ok(c, http.StatusOK, resp)
}

// SpeakDone marks playback of a message as finished.
func (h *Handlers) SpeakDone(c *gin.Context) {
	idx, valid := indexParam(c)
	if !valid {
		return
	}
	if h.narrator != nil {
		h.narrator.Done(idx)
	}
	noContent(c)
}

// Language and widget chrome handlers:
//   - GET /language     (selected language and its UI strings)
//   - PUT /language     (switch language)
//   - GET /languages    (picker entries)
//   - GET /suggestions  (suggested questions)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/portfolio-assistant/internal/i18n"
	"github.com/tbourn/portfolio-assistant/internal/services"
)

// SetLanguageRequest accepts a code or any BCP 47 tag ("pt-BR").
type SetLanguageRequest struct {
	Code string `json:"code" binding:"required" example:"es"`
}

// LanguageResponse is the selected language with its UI labels.
type LanguageResponse struct {
	Code    string       `json:"code"`
	Strings i18n.Strings `json:"strings"`
}

// SuggestionsResponse lists the suggested questions with their heading.
type SuggestionsResponse struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

func languageResponse(code string) LanguageResponse {
	return LanguageResponse{Code: code, Strings: i18n.Translate(code)}
}

// GetLanguage returns the selected language.
func (h *Handlers) GetLanguage(c *gin.Context) {
	ok(c, http.StatusOK, languageResponse(h.chat.Language(c.Request.Context())))
}

// SetLanguage godoc
// @Summary     Switch the widget language
// @Tags        Language
// @Accept      json
// @Produce     json
// @Param       body  body      handlers.SetLanguageRequest  true  "Language"
// @Success     200   {object}  handlers.LanguageResponse
// @Failure     400   {object}  handlers.ErrorResponse  "Unsupported language"
// @Router      /language [put]
func (h *Handlers) SetLanguage(c *gin.Context) {
	var req SetLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "code is required")
		return
	}
	code, matched := i18n.Match(req.Code)
	if !matched {
		fail(c, http.StatusBadRequest, ErrCodeUnsupportedLanguage, "unsupported language")
		return
	}

	if err := h.chat.SetLanguage(c.Request.Context(), code); err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedLanguage):
			fail(c, http.StatusBadRequest, ErrCodeUnsupportedLanguage, "unsupported language")
		case failService(c, err):
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, languageResponse(code))
}

// ListLanguages returns the language picker entries.
func (h *Handlers) ListLanguages(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"languages": i18n.Languages()})
}

// Suggestions returns the suggested questions under a translated heading.
func (h *Handlers) Suggestions(c *gin.Context) {
	qs := h.suggestions
	if qs == nil {
		qs = []string{}
	}
	lang := h.chat.Language(c.Request.Context())
	ok(c, http.StatusOK, SuggestionsResponse{Title: i18n.Translate(lang).SuggestedQuestions, Questions: qs})
}

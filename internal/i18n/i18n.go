// Package i18n lists the languages the widget can be switched to, the UI
// strings for those that are translated, and maps browser language tags to
// a supported code.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultCode is used whenever a language is unknown or untranslated.
const DefaultCode = "en"

// Language is one entry of the language picker.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Flag string `json:"flag"`
}

// Strings are the translatable UI labels.
type Strings struct {
	Welcome            string `json:"welcome"`
	TypeMessage        string `json:"type_message"`
	SuggestedQuestions string `json:"suggested_questions"`
	Send               string `json:"send"`
	Listening          string `json:"listening"`
	StopListening      string `json:"stop_listening"`
	Feedback           string `json:"feedback"`
	Yes                string `json:"yes"`
	No                 string `json:"no"`
	Thanks             string `json:"thanks"`
	Error              string `json:"error"`
	Loading            string `json:"loading"`
}

var languages = []Language{
	{Code: "en", Name: "English", Flag: "🇺🇸"},
	{Code: "es", Name: "Spanish", Flag: "🇪🇸"},
	{Code: "fr", Name: "French", Flag: "🇫🇷"},
	{Code: "de", Name: "German", Flag: "🇩🇪"},
	{Code: "pt", Name: "Portuguese", Flag: "🇵🇹"},
	{Code: "it", Name: "Italian", Flag: "🇮🇹"},
	{Code: "nl", Name: "Dutch", Flag: "🇳🇱"},
	{Code: "ru", Name: "Russian", Flag: "🇷🇺"},
	{Code: "zh", Name: "Chinese", Flag: "🇨🇳"},
	{Code: "ja", Name: "Japanese", Flag: "🇯🇵"},
}

var translations = map[string]Strings{
	"en": {
		Welcome:            "Hello! I'm your personal assistant. Feel free to ask me about Emmanuella's work or programming tips. What can I help you with today?",
		TypeMessage:        "Type your message...",
		SuggestedQuestions: "Suggested Questions:",
		Send:               "Send",
		Listening:          "Listening...",
		StopListening:      "Stop Listening",
		Feedback:           "Was this response helpful?",
		Yes:                "Yes",
		No:                 "No",
		Thanks:             "Thank you for your feedback!",
		Error:              "Error",
		Loading:            "Loading...",
	},
	"es": {
		Welcome:            "¡Hola! Soy tu asistente personal. Pregúntame sobre el trabajo de Emmanuella o consejos de programación. ¿En qué puedo ayudarte hoy?",
		TypeMessage:        "Escribe tu mensaje...",
		SuggestedQuestions: "Preguntas Sugeridas:",
		Send:               "Enviar",
		Listening:          "Escuchando...",
		StopListening:      "Detener Escucha",
		Feedback:           "¿Fue útil esta respuesta?",
		Yes:                "Sí",
		No:                 "No",
		Thanks:             "¡Gracias por tu comentario!",
		Error:              "Error",
		Loading:            "Cargando...",
	},
}

// Languages returns the picker entries in display order.
func Languages() []Language {
	return append([]Language(nil), languages...)
}

// Supported reports whether code is one of the picker codes.
func Supported(code string) bool {
	for _, l := range languages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// Translated reports whether code has its own UI strings.
func Translated(code string) bool {
	_, ok := translations[code]
	return ok
}

// Translate returns the UI strings for code, falling back to English.
func Translate(code string) Strings {
	if s, ok := translations[code]; ok {
		return s
	}
	return translations[DefaultCode]
}

// Welcome returns the greeting seeded into a fresh conversation.
func Welcome(code string) string {
	return Translate(code).Welcome
}

// Match maps a language tag or an Accept-Language header value (for example
// "pt-BR" or "fr-CH, fr;q=0.9, en;q=0.8") to a supported code. Tags are
// tried in preference order and match on their base language only. It
// returns DefaultCode and false when no tag names a picker language.
func Match(accept string) (string, bool) {
	accept = strings.TrimSpace(accept)
	if accept == "" {
		return DefaultCode, false
	}
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return DefaultCode, false
	}
	for _, tag := range tags {
		base, conf := tag.Base()
		if conf < language.High {
			continue
		}
		if code := base.String(); Supported(code) {
			return code, true
		}
	}
	return DefaultCode, false
}

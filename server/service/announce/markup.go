package announce

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Markup renders the emphasis and quote blocks of a message in one markup language.
// Text passed to Bold and Quote must already be escaped.
type Markup interface {
	// Escape makes user text safe to embed.
	Escape(s string) string
	// Bold marks header text as emphasized.
	Bold(s string) string
	// Quote renders one session block as a distinct quoted block.
	Quote(s string) string
	// Separator joins consecutive blocks.
	Separator() string
	// ParseMode is the Telegram parse mode for the output, empty for plain text.
	ParseMode() string
}

// HTML renders Telegram HTML.
type HTML struct{}

func (HTML) Escape(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeHTML, s) }
func (HTML) Bold(s string) string   { return "<b>" + s + "</b>" }
func (HTML) Quote(s string) string  { return "<blockquote>" + s + "</blockquote>" }
func (HTML) Separator() string      { return "\n" }
func (HTML) ParseMode() string      { return tgbotapi.ModeHTML }

// Markdown renders Telegram MarkdownV2.
type Markdown struct{}

func (Markdown) Escape(s string) string { return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, s) }
func (Markdown) Bold(s string) string   { return "*" + s + "*" }

func (Markdown) Quote(s string) string {
	return ">" + strings.ReplaceAll(s, "\n", "\n>")
}

// Separator leaves an empty line so adjacent quotes stay apart.
func (Markdown) Separator() string { return "\n\n" }
func (Markdown) ParseMode() string { return tgbotapi.ModeMarkdownV2 }

// Plain renders unformatted text for terminals and logs.
type Plain struct{}

func (Plain) Escape(s string) string { return s }
func (Plain) Bold(s string) string   { return s }
func (Plain) Quote(s string) string  { return s }
func (Plain) Separator() string      { return "\n\n" }
func (Plain) ParseMode() string      { return "" }

// MarkupByName returns the renderer called name: "html", "markdown" or "plain".
func MarkupByName(name string) (Markup, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "html":
		return HTML{}, true
	case "markdown", "markdownv2":
		return Markdown{}, true
	case "plain", "text", "":
		return Plain{}, true
	}
	return nil, false
}

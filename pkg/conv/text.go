package conv

import (
	"strings"

	"github.com/inbucket/html2text"
)

// HTMLToText renders Telegram HTML as plain text. Used when a channel rejects
// the markup or cannot render it at all.
func HTMLToText(html string) string {
	text, err := html2text.FromString(html, html2text.Options{OmitLinks: false})
	if err != nil {
		return html
	}
	return strings.TrimSpace(text)
}

// MarkdownToText renders Markdown straight to plain text.
func MarkdownToText(md string) string {
	return HTMLToText(MarkdownToTelegramHTML([]byte(md)))
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", "&lt;",
	">", "&gt;",
)

// EscapeMarkdown neutralises user text before it is embedded in Markdown.
func EscapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}

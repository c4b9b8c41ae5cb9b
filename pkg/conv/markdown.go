package conv

import (
	"fmt"
	"io"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags | html.HrefTargetBlank
	tgPolicy   = bluemonday.NewPolicy()
)

func init() {
	// Allowed tags https://core.telegram.org/bots/api#html-style
	tgPolicy.AllowElements("b", "strong", "i", "em", "u", "ins", "s", "strike", "del", "code", "pre", "blockquote")
	tgPolicy.AllowAttrs("href").OnElements("a")
	tgPolicy.AllowAttrs("class").OnElements("code")
}

// MarkdownToTelegramHTML renders reminder, briefing and command replies as
// the HTML subset Telegram accepts. Lists become one "• item" (or "1. item")
// line per entry and headings become bold lines, since Telegram has no tags
// for either and stripping them would run the items together.
func MarkdownToTelegramHTML(md []byte) string {
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags, RenderNodeHook: renderTelegramNode})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	return string(tgPolicy.SanitizeBytes(unsafeHTML))
}

func renderTelegramNode(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	switch n := node.(type) {
	case *ast.List:
		return ast.GoToNext, true
	case *ast.ListItem:
		if !entering {
			io.WriteString(w, "\n")
			return ast.GoToNext, true
		}
		if n.ListFlags&ast.ListTypeOrdered != 0 {
			fmt.Fprintf(w, "%d. ", position(n))
		} else {
			io.WriteString(w, "• ")
		}
		return ast.GoToNext, true
	case *ast.Heading:
		if entering {
			io.WriteString(w, "<b>")
		} else {
			io.WriteString(w, "</b>\n")
		}
		return ast.GoToNext, true
	}
	return ast.GoToNext, false
}

// position is the 1-based index of an item within its list.
func position(item ast.Node) int {
	parent := item.GetParent()
	if parent == nil {
		return 1
	}
	for i, c := range parent.GetChildren() {
		if c == item {
			return i + 1
		}
	}
	return 1
}

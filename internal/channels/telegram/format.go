package telegram

import (
	"bytes"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// htmlRenderer renders markdown into the tag subset Telegram's HTML
// parse mode accepts: b, i, s, code, pre, a, blockquote.
type htmlRenderer struct{}

func (r *htmlRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindDocument, r.passthrough)
	reg.Register(ast.KindTextBlock, r.passthrough)
	reg.Register(ast.KindList, r.wrap("", "\n"))
	reg.Register(ast.KindParagraph, r.paragraph)
	reg.Register(ast.KindHeading, r.wrap("<b>", "</b>\n\n"))
	reg.Register(ast.KindBlockquote, r.wrap("<blockquote>", "</blockquote>\n"))
	reg.Register(ast.KindListItem, r.wrap("• ", "\n"))
	reg.Register(ast.KindCodeBlock, r.codeBlock)
	reg.Register(ast.KindFencedCodeBlock, r.codeBlock)
	reg.Register(ast.KindThematicBreak, r.thematicBreak)

	reg.Register(ast.KindText, r.text)
	reg.Register(ast.KindString, r.str)
	reg.Register(ast.KindEmphasis, r.emphasis)
	reg.Register(ast.KindCodeSpan, r.codeSpan)
	reg.Register(ast.KindLink, r.link)
	reg.Register(ast.KindAutoLink, r.autoLink)
	reg.Register(ast.KindRawHTML, r.skip)
	reg.Register(ast.KindHTMLBlock, r.skip)
	reg.Register(ast.KindImage, r.skip)

	reg.Register(east.KindStrikethrough, r.wrap("<s>", "</s>"))
	reg.Register(east.KindTable, r.table)
	for _, k := range []ast.NodeKind{east.KindTableHeader, east.KindTableRow, east.KindTableCell} {
		reg.Register(k, r.passthrough)
	}
}

func (r *htmlRenderer) passthrough(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) skip(util.BufWriter, []byte, ast.Node, bool) (ast.WalkStatus, error) {
	return ast.WalkSkipChildren, nil
}

func (r *htmlRenderer) wrap(open, close string) renderer.NodeRendererFunc {
	return func(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			_, _ = w.WriteString(open)
		} else {
			_, _ = w.WriteString(close)
		}
		return ast.WalkContinue, nil
	}
}

func (r *htmlRenderer) paragraph(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		return ast.WalkContinue, nil
	}
	// tight list items hold paragraphs too; no blank line inside them
	if _, inList := node.Parent().(*ast.ListItem); inList {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("\n\n")
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) codeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<pre>")
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		_, _ = w.WriteString(escapeHTML(string(line.Value(source))))
	}
	_, _ = w.WriteString("</pre>\n")
	return ast.WalkSkipChildren, nil
}

func (r *htmlRenderer) thematicBreak(w util.BufWriter, _ []byte, _ ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString("\n---\n")
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) text(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.Text)
	_, _ = w.WriteString(escapeHTML(string(n.Segment.Value(source))))
	if n.SoftLineBreak() || n.HardLineBreak() {
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) str(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(escapeHTML(string(node.(*ast.String).Value)))
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) emphasis(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	tag := "i"
	if node.(*ast.Emphasis).Level >= 2 {
		tag = "b"
	}
	if entering {
		_, _ = w.WriteString("<" + tag + ">")
	} else {
		_, _ = w.WriteString("</" + tag + ">")
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) codeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	_, _ = w.WriteString("<code>")
	_, _ = w.WriteString(escapeHTML(plainText(source, node)))
	_, _ = w.WriteString("</code>")
	return ast.WalkSkipChildren, nil
}

func (r *htmlRenderer) link(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(`<a href="` + escapeAttr(string(node.(*ast.Link).Destination)) + `">`)
	} else {
		_, _ = w.WriteString("</a>")
	}
	return ast.WalkContinue, nil
}

func (r *htmlRenderer) autoLink(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	url := string(node.(*ast.AutoLink).URL(source))
	_, _ = w.WriteString(`<a href="` + escapeAttr(url) + `">` + escapeHTML(url) + "</a>")
	return ast.WalkSkipChildren, nil
}

// table renders a GFM table as aligned preformatted text; Telegram has no
// table markup. Widths are display widths so CJK and emoji line up.
func (r *htmlRenderer) table(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	var rows [][]string
	var widths []int
	for row := node.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			text := strings.TrimSpace(plainText(source, cell))
			if len(cells) >= len(widths) {
				widths = append(widths, 0)
			}
			widths[len(cells)] = max(widths[len(cells)], runewidth.StringWidth(text))
			cells = append(cells, text)
		}
		rows = append(rows, cells)
	}

	_, _ = w.WriteString("<pre>")
	for i, cells := range rows {
		line := make([]string, len(cells))
		for j, c := range cells {
			line[j] = runewidth.FillRight(c, widths[j])
		}
		_, _ = w.WriteString(escapeHTML(strings.Join(line, " | ")) + "\n")
		if i == 0 {
			rule := make([]string, len(widths))
			for j, wd := range widths {
				rule[j] = strings.Repeat("-", wd)
			}
			_, _ = w.WriteString(strings.Join(rule, "-+-") + "\n")
		}
	}
	_, _ = w.WriteString("</pre>\n")
	return ast.WalkSkipChildren, nil
}

func plainText(source []byte, node ast.Node) string {
	var buf bytes.Buffer
	var walk func(n ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
		case *ast.String:
			buf.Write(t.Value)
		default:
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				walk(c)
			}
		}
	}
	walk(node)
	return buf.String()
}

var (
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
func escapeAttr(s string) string { return attrEscaper.Replace(s) }

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRenderer(renderer.NewRenderer(
		renderer.WithNodeRenderers(util.Prioritized(&htmlRenderer{}, 100)),
	)),
)

// FormatHTML converts markdown to Telegram HTML. ok is false when the
// conversion failed or produced nothing, in which case the input is
// returned unchanged for sending as plain text.
func FormatHTML(md string) (formatted string, ok bool) {
	if md == "" {
		return "", true
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return md, false
	}
	out := strings.TrimSpace(buf.String())
	if out == "" {
		return md, false
	}
	return out, true
}

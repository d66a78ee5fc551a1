package planner

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var checkboxPrefix = regexp.MustCompile(`^\[(?: |x|X)\]\s*`)

// TaskLines extracts the top-level list item texts from a markdown
// plan. Task-list checkboxes are stripped; nested lists and anything
// that is not a list item are ignored. Malformed input yields whatever
// items parse.
func TaskLines(source []byte) []string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var items []string
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		item, ok := node.(*ast.ListItem)
		if !ok {
			return ast.WalkContinue, nil
		}
		if line := itemText(item, source); line != "" {
			items = append(items, line)
		}
		return ast.WalkSkipChildren, nil
	})
	return items
}

// itemText renders the first text block of a list item.
func itemText(item *ast.ListItem, source []byte) string {
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *ast.TextBlock, *ast.Paragraph:
			var b strings.Builder
			lines := child.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				b.Write(segment.Value(source))
				b.WriteByte(' ')
			}
			line := strings.TrimSpace(b.String())
			return strings.TrimSpace(checkboxPrefix.ReplaceAllString(line, ""))
		}
	}
	return ""
}

package utils

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var shortcodePattern = regexp.MustCompile(`\[/?[A-Za-z][\w-]*(?:\s[^\]]*)?/?\]`)

// blockAtoms are elements whose boundaries separate words in rendered text
var blockAtoms = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Section: true, atom.Article: true,
	atom.Blockquote: true, atom.Figure: true, atom.Figcaption: true,
}

// CleanContent converts WordPress post content into plain searchable text:
// shortcode tags are removed, HTML is stripped (script and style bodies
// included), entities are decoded and whitespace runs collapse to one space.
func CleanContent(content string) string {
	if content == "" {
		return ""
	}

	content = shortcodePattern.ReplaceAllString(content, " ")

	var b strings.Builder
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skipDepth == 0 {
				// Text() already decodes entities
				b.Write(tokenizer.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && tt == html.StartTagToken {
				skipDepth++
			}
			if blockAtoms[a] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			a := atom.Lookup(name)
			if (a == atom.Script || a == atom.Style) && skipDepth > 0 {
				skipDepth--
			}
			if blockAtoms[a] {
				b.WriteByte(' ')
			}
		}
	}
}

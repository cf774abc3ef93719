package widget

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/set-night/interiorchat/internal/config"
)

// collapseWhitespace joins whitespace runs into single spaces, the way a browser renders markup.
func collapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// selectionFromHTML reduces a selected HTML fragment to its visible text.
func selectionFromHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parse selection: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return collapseWhitespace(doc.Text()), nil
}

// SelectionPreview is the text shown on the selection chip.
func SelectionPreview(text string) string {
	runes := []rune(text)
	if len(runes) <= config.SelectionPreviewLen {
		return text
	}
	return string(runes[:config.SelectionPreviewLen]) + "..."
}

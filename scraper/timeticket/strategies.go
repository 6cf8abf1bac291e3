package timeticket

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/Re-Local/Backend/services"
)

// LabelStrategy looks up the value printed next to label on the current
// page. An empty result means the strategy found nothing.
type LabelStrategy func(ctx context.Context, page Page, label string) (string, error)

// DocumentStrategy adapts a pure DOM lookup into a LabelStrategy that runs
// against a fresh snapshot of the page.
func DocumentStrategy(find func(doc *goquery.Document, label string) string) LabelStrategy {
	return func(ctx context.Context, page Page, label string) (string, error) {
		doc, err := page.Document(ctx)
		if err != nil {
			return "", err
		}
		return find(doc, label), nil
	}
}

// DefaultLabelStrategies is tried in order: inline list items, term/value
// pairs, then a line scan over all visible text.
var DefaultLabelStrategies = []LabelStrategy{
	DocumentStrategy(ListItemValue),
	DocumentStrategy(TermPairValue),
	DocumentStrategy(TextLineValue),
}

// lookupLabel walks the strategy chain and returns the first non-empty
// value for any of labels. Every attempt gets its own timeout; one that
// overruns counts as a miss and the chain moves on.
func lookupLabel(ctx context.Context, page Page, strategies []LabelStrategy, labels []string, timeout time.Duration) string {
	for _, strategy := range strategies {
		for _, label := range labels {
			if ctx.Err() != nil {
				return ""
			}
			if v := runStrategy(ctx, strategy, page, label, timeout); v != "" {
				return v
			}
		}
	}
	return ""
}

func runStrategy(ctx context.Context, strategy LabelStrategy, page Page, label string, timeout time.Duration) string {
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := strategy(sctx, page, label)
		done <- result{v, err}
	}()

	select {
	case <-sctx.Done():
		return ""
	case r := <-done:
		if r.err != nil {
			return ""
		}
		return services.CleanText(r.value)
	}
}

const labelSeparators = ":： \t"

// ListItemValue finds a leaf <li> whose text starts with label and returns
// the rest of it, e.g. <li>공연장 : 대학로 아트홀</li>.
func ListItemValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
		if li.Find("li").Length() > 0 {
			return true
		}
		text := services.CleanText(li.Text())
		rest, ok := strings.CutPrefix(text, label)
		if !ok {
			return true
		}
		if rest = strings.TrimLeft(rest, labelSeparators); rest != "" {
			value = rest
			return false
		}
		return true
	})
	return value
}

// TermPairValue handles <dt>label</dt><dd>value</dd> and the table form
// <th>label</th><td>value</td>.
func TermPairValue(doc *goquery.Document, label string) string {
	var value string
	doc.Find("dt, th").EachWithBreak(func(_ int, term *goquery.Selection) bool {
		name := strings.TrimRight(services.CleanText(term.Text()), labelSeparators)
		if name != label {
			return true
		}
		next := term.Next()
		if !next.Is("dd, td") {
			return true
		}
		if v := services.CleanText(next.Text()); v != "" {
			value = v
			return false
		}
		return true
	})
	return value
}

// TextLineValue scans every visible text line for "<label>[:\s]*value".
func TextLineValue(doc *goquery.Document, label string) string {
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(label) + `[:：\s]*(.+)$`)
	for _, line := range visibleLines(doc) {
		if m := re.FindStringSubmatch(line); m != nil {
			if v := services.CleanText(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func visibleLines(doc *goquery.Document) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			for _, line := range strings.Split(n.Data, "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return lines
}

// firstText returns the cleaned text of the first element matching selector
// that has any.
func firstText(doc *goquery.Document, selector string) string {
	if doc == nil {
		return ""
	}
	var value string
	doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		value = services.CleanText(s.Text())
		return value == ""
	})
	return value
}

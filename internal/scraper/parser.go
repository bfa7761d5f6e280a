package scraper

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"rowtracker-platform/internal/models"
)

// positionColumns is the published column order of the positions table:
// team, last update, latitude, longitude, speed, course.
const positionColumns = 6

// ParsePositionTable extracts position rows from a tracking page. It walks
// every table row in the document and keeps rows carrying at least the six
// expected data cells; header rows (th cells) and decorative rows are
// skipped. Malformed markup inside a cell degrades to its visible text, the
// same way a browser renders it.
func ParsePositionTable(r io.Reader) ([]models.RawPositionRow, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows []models.RawPositionRow
	walkRows(doc, func(cells []string) {
		if len(cells) < positionColumns {
			return
		}
		rows = append(rows, models.RawPositionRow{
			TeamName:   cells[0],
			LastUpdate: cells[1],
			Latitude:   cells[2],
			Longitude:  cells[3],
			Speed:      cells[4],
			Course:     cells[5],
		})
	})

	return rows, nil
}

// walkRows visits every <tr> in the document and hands its <td> cell texts
// to fn. Rows containing <th> cells are treated as headers and skipped.
func walkRows(n *html.Node, fn func(cells []string)) {
	if n.Type == html.ElementNode && n.Data == "tr" {
		var cells []string
		header := false
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "th":
				header = true
			case "td":
				cells = append(cells, strings.TrimSpace(nodeText(c)))
			}
		}
		if !header {
			fn(cells)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkRows(c, fn)
	}
}

// nodeText collects the concatenated text content under a node.
func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

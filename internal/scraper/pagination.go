package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverPages reads the pagination control of the landing markup and returns
// the URLs of pages 2..max, built from template with the page index in place
// of %d. The last control entry is the "next" arrow; the one before it holds
// the highest page number.
func DiscoverPages(markup string, template string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: parse markup: %v", ErrPaginationStructure, err)
	}

	control := doc.Find("ul.pagination").First()
	if control.Length() == 0 {
		return nil, ErrPaginationStructure
	}
	items := control.Find("li.page-item")
	if items.Length() < 2 {
		return nil, fmt.Errorf("%w: %d page items", ErrPaginationStructure, items.Length())
	}

	raw := strings.TrimSpace(items.Eq(items.Length() - 2).Text())
	maxPage, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: max page %q", ErrPaginationStructure, raw)
	}

	if maxPage < 2 {
		return []string{}, nil
	}
	out := make([]string, 0, maxPage-1)
	for p := 2; p <= maxPage; p++ {
		out = append(out, fmt.Sprintf(template, p))
	}
	return out, nil
}

package scraper

import (
	"strings"

	"duapune-scraper/internal/domain/listing"

	"github.com/PuerkitoBio/goquery"
)

const listingsContainerSelector = "div.col-md-6.customlistinghome"

// Tile variants, in the order their links are collected.
var tileSelectors = []string{
	"div.job-listing.col-md-12.sponsored-listing",
	"div.job-listing.col-md-12.premiumBlock.simple-listing",
	"div.job-listing.col-md-12.premiumBlockv2.simple-listing",
}

// ExtractLinks returns the detail-page references of every known listing tile
// on the page. Relative links are resolved against pageURL. Tiles without a
// content anchor are skipped.
func ExtractLinks(markup string, pageURL string) []listing.Reference {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	container := doc.Find(listingsContainerSelector).First()
	if container.Length() == 0 {
		return nil
	}

	out := make([]listing.Reference, 0)
	for _, sel := range tileSelectors {
		container.Find(sel).Each(func(_ int, tile *goquery.Selection) {
			href, ok := tile.Find("div.mid-conntent").First().Find("a").First().Attr("href")
			if !ok {
				return
			}
			u := resolveURL(pageURL, href)
			if u == "" {
				return
			}
			out = append(out, listing.Reference{URL: u})
		})
	}
	return out
}

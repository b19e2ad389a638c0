package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://www.duapune.test/"

const listingDetailHTML = `<!DOCTYPE html>
<html>
<head><title>Backend Developer - Duapune</title></head>
<body>
<div class="container">
  <div class="row block-listings">
    <div id="listing-home">
      <div class="col-md-12">
        <div class="job-header">
          <h1><a href="/job/backend-developer-123">Backend Developer</a> <small>Kodi Punës: 123</small></h1>
        </div>
      </div>
    </div>
    <div class="job-details">
      <span class="location">
        Tiranë
      </span>
      <span class="time">12 / 05 / 2024</span>
    </div>
    <div class="main-content-wrap">
      <div class="row"><span>Kategoria e Punës / Profesioni</span><span>Informatikë</span></div>
      <div class="row"><span>Tipi i punës</span><span>Me kohë të plotë</span></div>
      <div class="row">
<div class="col-xs-6">
Eksperiencë
</div>
<div class="col-xs-6">
2 vjet
</div>
      </div>
      <div class="row"><div class="col-xs-6">Kërkohet foto</div><div class="col-xs-6">Po</div></div>
      <div class="row"><div class="col-xs-6">Letër interesi</div><div class="col-xs-6">Jo</div></div>
      <div class="row"><span>Rroga mujore</span><span>80,000 - 120,000 ALL</span></div>
    </div>
    <div class="main-content-wrap">
      <p>We are hiring a Go developer to build crawlers.</p>
    </div>
  </div>
  <div class="col-md-12 company-details">
    <h3 class="c-name">Acme Sh.p.k</h3>
  </div>
</div>
</body>
</html>`

const companyDetailsBlock = `  <div class="col-md-12 company-details">
    <h3 class="c-name">Acme Sh.p.k</h3>
  </div>
`

func listingWithoutCompany() string {
	return strings.Replace(listingDetailHTML, companyDetailsBlock, "", 1)
}

// listingPageHTML builds a results page holding the given tile markup.
func listingPageHTML(tiles ...string) string {
	return `<html><body>
<section id="listing-home">
  <div class="col-md-6 customlistinghome">
` + strings.Join(tiles, "\n") + `
  </div>
</section>
</body></html>`
}

func sponsoredTile(href string) string {
	return fmt.Sprintf(`<div class="job-listing col-md-12 sponsored-listing "><div class="left-content"></div><div class="mid-conntent"><h2><a href="%s">Sponsored</a></h2></div></div>`, href)
}

func premiumTile(href string) string {
	return fmt.Sprintf(`<div class="job-listing col-md-12 premiumBlock simple-listing "><div class="mid-conntent"><a href="%s">Premium</a></div></div>`, href)
}

func premiumV2Tile(href string) string {
	return fmt.Sprintf(`<div class="job-listing col-md-12 premiumBlockv2 simple-listing "><div class="mid-conntent"><a href="%s">Premium v2</a></div></div>`, href)
}

// malformedTile is a known variant without the content anchor.
func malformedTile() string {
	return `<div class="job-listing col-md-12 premiumBlock simple-listing "><div class="mid-content-broken"><span>No link</span></div></div>`
}

func paginationHTML(items ...string) string {
	var b strings.Builder
	b.WriteString(`<nav><ul class="pagination">`)
	for _, it := range items {
		fmt.Fprintf(&b, `<li class="page-item"><a class="page-link" href="#"> %s </a></li>`, it)
	}
	b.WriteString(`</ul></nav>`)
	return b.String()
}

// landingHTML is a disclosed landing page with tiles and a pagination control.
func landingHTML(pagination string, tiles ...string) string {
	return strings.Replace(listingPageHTML(tiles...), "</body>", pagination+"</body>", 1)
}

func mustDocument(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return doc
}

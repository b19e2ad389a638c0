package scraper

import (
	"fmt"
	"strings"
	"time"

	"duapune-scraper/internal/domain/listing"

	"github.com/PuerkitoBio/goquery"
	"github.com/yosssi/gohtml"
)

const (
	labelJobCategory  = "Kategoria e Punës / Profesioni"
	labelContractType = "Tipi i punës"
	labelExperience   = "Eksperiencë"
	labelPhoto        = "Kërkohet foto"
	labelCoverLetter  = "Letër interesi"
	labelSalary       = "Rroga mujore"

	objectIDPrefix = "Kodi Punës:"
)

type fieldExtractor struct {
	name    string
	extract func(doc *goquery.Document) (string, error)
}

// recordFields is the extraction table. Each entry runs on its own; a failure
// leaves only that field empty.
var recordFields = []fieldExtractor{
	{listing.FieldCompanyName, extractCompanyName},
	{listing.FieldJobTitle, extractJobTitle},
	{listing.FieldObjectID, extractObjectID},
	{listing.FieldJobCity, extractJobCity},
	{listing.FieldExpirationDate, extractExpirationDate},
	{listing.FieldJobCategory, labelledSpan(0, labelJobCategory)},
	{listing.FieldContractType, labelledSpan(1, labelContractType)},
	{listing.FieldExperienceRequirement, labelledColumn(2, labelExperience)},
	{listing.FieldPhotoRequirement, labelledColumn(3, labelPhoto)},
	{listing.FieldCLRequirement, labelledColumn(4, labelCoverLetter)},
	{listing.FieldMonthlySalary, labelledSpan(5, labelSalary)},
	{listing.FieldJobDescription, extractJobDescription},
}

// ExtractRecord converts listing markup into a Record. It never fails: fields
// whose markup is missing stay empty.
func ExtractRecord(markup string, sourceURL string, capturedAt time.Time) listing.Record {
	rec, _ := extractRecord(markup, sourceURL, capturedAt)
	return rec
}

// extractRecord also reports why each empty field could not be read.
func extractRecord(markup string, sourceURL string, capturedAt time.Time) (listing.Record, map[string]error) {
	rec := listing.Record{
		ObjectLink:   sourceURL,
		ScrapingTime: capturedAt,
		PageHTML:     gohtml.Format(markup),
	}
	failed := map[string]error{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		for _, f := range recordFields {
			failed[f.name] = err
		}
		return rec, failed
	}

	for _, f := range recordFields {
		v, err := runExtractor(f, doc)
		if err != nil {
			failed[f.name] = err
			continue
		}
		if dst := rec.ContentField(f.name); dst != nil {
			*dst = v
		}
	}
	return rec, failed
}

func runExtractor(f fieldExtractor, doc *goquery.Document) (v string, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = "", fmt.Errorf("%s: panic: %v", f.name, r)
		}
	}()
	return f.extract(doc)
}

// descend follows selectors from sel, keeping the first match at each step.
func descend(sel *goquery.Selection, selectors ...string) (*goquery.Selection, error) {
	cur := sel
	for _, s := range selectors {
		cur = cur.Find(s).First()
		if cur.Length() == 0 {
			return nil, fmt.Errorf("%w: %s", errFieldNotFound, s)
		}
	}
	return cur, nil
}

func blockListings(doc *goquery.Document) *goquery.Selection {
	return doc.Find("div.row.block-listings").First()
}

func extractCompanyName(doc *goquery.Document) (string, error) {
	s, err := descend(doc.Selection, "div.col-md-12.company-details", "h3.c-name")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.Text()), nil
}

func listingHeading(doc *goquery.Document) (*goquery.Selection, error) {
	return descend(blockListings(doc), "div#listing-home", "div", "div", "h1")
}

func extractJobTitle(doc *goquery.Document) (string, error) {
	h1, err := listingHeading(doc)
	if err != nil {
		return "", err
	}
	a, err := descend(h1, "a")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(a.Text()), nil
}

func extractObjectID(doc *goquery.Document) (string, error) {
	h1, err := listingHeading(doc)
	if err != nil {
		return "", err
	}
	small, err := descend(h1, "small")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(small.Text(), objectIDPrefix, "")), nil
}

func extractJobCity(doc *goquery.Document) (string, error) {
	s, err := descend(blockListings(doc), "div.job-details", "span.location")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.Text()), nil
}

func extractExpirationDate(doc *goquery.Document) (string, error) {
	s, err := descend(blockListings(doc), "div.job-details", "span.time")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(strings.ReplaceAll(s.Text(), " ", "")), nil
}

func extractJobDescription(doc *goquery.Document) (string, error) {
	wraps := doc.Find("div.main-content-wrap")
	if wraps.Length() < 2 {
		return "", fmt.Errorf("%w: second div.main-content-wrap", errFieldNotFound)
	}
	return strings.TrimSpace(wraps.Eq(1).Text()), nil
}

// contentRow returns the i-th detail row of the listing's main content block.
func contentRow(doc *goquery.Document, i int) (*goquery.Selection, error) {
	wrap, err := descend(blockListings(doc), "div.main-content-wrap")
	if err != nil {
		return nil, err
	}
	rows := wrap.Find("div.row")
	if i >= rows.Length() {
		return nil, fmt.Errorf("%w: content row %d", errFieldNotFound, i)
	}
	return rows.Eq(i), nil
}

// labelledValue reads the element after a label element inside content row i.
func labelledValue(doc *goquery.Document, row int, cell string, label string) (string, error) {
	r, err := contentRow(doc, row)
	if err != nil {
		return "", err
	}
	cells := r.Find(cell)
	if cells.Length() < 2 {
		return "", fmt.Errorf("%w: %s in content row %d", errFieldNotFound, cell, row)
	}
	if got := strings.TrimSpace(cells.Eq(0).Text()); got != label {
		return "", fmt.Errorf("%w: want %q, got %q", errLabelMismatch, label, got)
	}
	return strings.TrimSpace(cells.Eq(1).Text()), nil
}

func labelledSpan(row int, label string) func(*goquery.Document) (string, error) {
	return func(doc *goquery.Document) (string, error) {
		return labelledValue(doc, row, "span", label)
	}
}

func labelledColumn(row int, label string) func(*goquery.Document) (string, error) {
	return func(doc *goquery.Document) (string, error) {
		return labelledValue(doc, row, "div.col-xs-6", label)
	}
}

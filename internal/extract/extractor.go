package extract

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/perfumedb/perfcrawl/internal/classify"
	"github.com/perfumedb/perfcrawl/internal/model"
)

// ErrNoFields is returned when a fetched page yields neither a brand
// nor a name, even after URL fallbacks. The page is skipped; partial
// records are never persisted.
var ErrNoFields = errors.New("page yielded no extractable fields")

// ratingVotesRe matches the visible rating summary, e.g.
// "Perfume rating 4.12 out of 5 with 1,523 votes".
var ratingVotesRe = regexp.MustCompile(`(?i)Perfume\s+rating\s+([0-9]+(?:\.[0-9]+)?)\s+out\s+of\s+5\s+with\s+([\d,]+)\s+votes`)

// designerRe captures the brand from a "Designer <Brand>" label.
var designerRe = regexp.MustCompile(`(?i)^Designer\s+(\S.*)$`)

// forGenderRe strips the trailing audience qualifier from a fragrance name.
var forGenderRe = regexp.MustCompile(`(?i)\s+for\s+(men|women|unisex)\s*$`)

// maxDesignerTextLen bounds the elements considered for the designer
// label so that large containers whose text happens to start with
// "Designer" do not swallow half the page.
const maxDesignerTextLen = 100

// Extract parses the fields of one perfume page. pageURL must be the
// canonical item URL; it supplies brand/name fallbacks when the markup
// yields nothing. Rating and votes are left nil when unparseable.
func Extract(pageURL string, body []byte) (*model.Record, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	record := &model.Record{
		URL:   pageURL,
		Brand: brandFromDoc(doc),
		Name:  nameFromDoc(doc),
	}
	record.Rating, record.Votes = ratingVotes(doc)

	// URL fallbacks for pages whose markup failed to yield the fields.
	urlBrand, urlName := classify.BrandNameFromURL(pageURL)
	if record.Brand == "" {
		record.Brand = urlBrand
	}
	if record.Name == "" {
		record.Name = urlName
	}

	if !record.Complete() {
		return nil, ErrNoFields
	}
	return record, nil
}

// brandFromDoc finds the deepest element whose text reads
// "Designer <Brand>". Walking in document order and keeping the last
// match lands on the smallest enclosing element.
func brandFromDoc(doc *goquery.Document) string {
	brand := ""
	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		text := classify.CleanSpace(s.Text())
		if text == "" || len(text) > maxDesignerTextLen {
			return
		}
		if m := designerRe.FindStringSubmatch(text); m != nil {
			brand = classify.CleanSpace(m[1])
		}
	})
	return brand
}

// nameFromDoc reads the fragrance name from the first heading, falling
// back to the og:title meta tag. The trailing "for men/women/unisex"
// qualifier is dropped either way.
func nameFromDoc(doc *goquery.Document) string {
	name := classify.CleanSpace(doc.Find("h1").First().Text())
	if name == "" {
		name = classify.CleanSpace(doc.Find("h2").First().Text())
	}
	if name == "" {
		name, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
		name = classify.CleanSpace(name)
	}
	return forGenderRe.ReplaceAllString(name, "")
}

// ratingVotes scans the page text for the rating summary.
// Both values stay nil when the summary is absent or malformed.
func ratingVotes(doc *goquery.Document) (*float64, *int) {
	m := ratingVotesRe.FindStringSubmatch(doc.Text())
	if m == nil {
		return nil, nil
	}

	rating, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, nil
	}
	votes, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return &rating, nil
	}
	return &rating, &votes
}

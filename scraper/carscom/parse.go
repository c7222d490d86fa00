package carscom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Spec labels read from a detail page's description list.
const (
	specExteriorColor = "Exterior color"
	specInteriorColor = "Interior color"
	specDrivetrain    = "Drivetrain"
	specFuelType      = "Fuel type"
	specTransmission  = "Transmission"
	specEngine        = "Engine"
	specVIN           = "VIN"
	specMileage       = "Mileage"
)

var wantedSpecs = map[string]struct{}{
	specExteriorColor: {}, specInteriorColor: {}, specDrivetrain: {}, specFuelType: {},
	specTransmission: {}, specEngine: {}, specVIN: {}, specMileage: {},
}

// Card is one listing on a search results page.
type Card struct {
	Name      string
	Price     string
	DetailURL string
}

// ParseResultsPage extracts listing cards. Cards without a title or link are
// skipped.
func ParseResultsPage(html, baseURL string) ([]Card, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("carscom: parse results page: %w", err)
	}

	var cards []Card
	doc.Find("div.vehicle-card-main").Each(func(_ int, sel *goquery.Selection) {
		name := strings.TrimSpace(sel.Find("h2.title").First().Text())
		href, ok := sel.Find("a[href]").First().Attr("href")
		if name == "" || !ok || href == "" {
			return
		}
		cards = append(cards, Card{
			Name:      name,
			Price:     strings.TrimSpace(sel.Find("span.primary-price").First().Text()),
			DetailURL: absoluteURL(baseURL, href),
		})
	})
	return cards, nil
}

// ParseDetailPage reads the spec list of a vehicle detail page.
func ParseDetailPage(html string) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("carscom: parse detail page: %w", err)
	}

	list := doc.Find("dl.fancy-description-list").First()
	if list.Length() == 0 {
		return nil, fmt.Errorf("carscom: detail page has no spec list")
	}

	terms := list.Find("dt")
	descs := list.Find("dd")
	specs := make(map[string]string)
	for i := 0; i < terms.Length() && i < descs.Length(); i++ {
		term := strings.TrimSpace(terms.Eq(i).Text())
		if _, ok := wantedSpecs[term]; !ok {
			continue
		}
		specs[term] = strings.TrimSpace(descs.Eq(i).Text())
	}
	return specs, nil
}

func absoluteURL(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

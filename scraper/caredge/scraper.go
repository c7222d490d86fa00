// Package caredge scrapes make- and model-level maintenance cost tables.
package caredge

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"vehicle-data-pipeline/config"
	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

const (
	allModels     = "All Models"
	costTableSel  = "table.table.table-striped.table-bordered.table-hover"
	userAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maintenanceKW = "maintenance"
)

// Scraper collects maintenance statistics for the configured brands.
type Scraper struct {
	cfg    *config.Config
	http   *resty.Client
	logger *utils.Logger
	pool   *utils.WorkerPool
}

// New creates a Scraper against cfg.CarEdgeBaseURL.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.CarEdgeBaseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(cfg.MaxRetries).
		SetTimeout(cfg.ScrapeTimeout)

	return &Scraper{
		cfg:    cfg,
		http:   client,
		logger: logger,
		pool:   utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
	}
}

// Scrape returns every row found. A brand or model page that fails is logged
// and skipped.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.MaintenanceRecord, error) {
	var (
		mu  sync.Mutex
		all []*models.MaintenanceRecord
	)

	for _, brand := range s.cfg.Brands {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		s.logger.Info("[caredge] Fetching make-level maintenance data for %s", brand)
		brandPath := "/" + brand + "/" + maintenanceKW
		doc, err := s.fetch(ctx, brandPath)
		if err != nil {
			s.logger.Error("[caredge] %s: %v", brandPath, err)
			continue
		}

		rows, err := ParseCostTable(doc, brandPath, true)
		if err != nil {
			s.logger.Warn("[caredge] %v", err)
		}
		all = append(all, rows...)

		links := ModelLinks(doc)
		s.logger.Info("[caredge] %s: %d model pages", brand, len(links))

		for _, link := range links {
			link := link
			s.pool.Submit(func() {
				modelDoc, err := s.fetch(ctx, link)
				if err != nil {
					s.logger.Error("[caredge] %s: %v", link, err)
					return
				}
				rows, err := ParseCostTable(modelDoc, link, false)
				if err != nil {
					s.logger.Warn("[caredge] %v", err)
					return
				}
				mu.Lock()
				all = append(all, rows...)
				mu.Unlock()
			})
		}
		s.pool.Wait()
	}

	s.logger.Info("[caredge] Scrape complete, %d maintenance rows", len(all))
	return all, nil
}

func (s *Scraper) fetch(ctx context.Context, path string) (*goquery.Document, error) {
	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(path)
	if err != nil {
		return nil, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	return goquery.NewDocumentFromReader(body)
}

// ModelLinks returns the distinct maintenance page paths linked from table
// rows, in page order.
func ModelLinks(doc *goquery.Document) []string {
	seen := utils.NewStringSet()
	var links []string
	doc.Find("tr a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.Contains(href, maintenanceKW) {
			return
		}
		path := href
		if u, err := url.Parse(href); err == nil && u.Path != "" {
			path = u.Path
		}
		if seen.Add(path) {
			links = append(links, path)
		}
	})
	return links
}

// ParseCostTable reads the year rows of a maintenance table. Brand and model
// come from the page path (/<brand>/<model>/maintenance); make-level pages
// use the "All Models" model.
func ParseCostTable(doc *goquery.Document, path string, makeLevel bool) ([]*models.MaintenanceRecord, error) {
	table := doc.Find(costTableSel).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("no data table found for %s", path)
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	brand := segments[0]
	model := allModels
	if !makeLevel {
		if len(segments) < 2 {
			return nil, fmt.Errorf("no model segment in %s", path)
		}
		model = segments[1]
	}

	var rows []*models.MaintenanceRecord
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cols := tr.Find("td")
		if cols.Length() < 3 {
			return
		}
		rows = append(rows, &models.MaintenanceRecord{
			Brand:                  brand,
			Model:                  model,
			Year:                   strings.TrimSpace(cols.Eq(0).Text()),
			MajorRepairProbability: strings.TrimSpace(cols.Eq(1).Text()),
			AnnualCosts:            strings.TrimSpace(cols.Eq(2).Text()),
		})
	})
	return rows, nil
}

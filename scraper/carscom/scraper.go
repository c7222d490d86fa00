package carscom

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"vehicle-data-pipeline/config"
	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

const source = "Cars.com"

// Scraper collects raw listings from cars.com search results and detail pages.
type Scraper struct {
	cfg        *config.Config
	fetcher    PageFetcher
	logger     *utils.Logger
	pool       *utils.WorkerPool
	visitedURL *utils.StringSet
	retry      *utils.RetryConfig
	now        func() time.Time

	mu       sync.Mutex
	listings []*models.RawVehicleRecord
}

// New creates a Scraper that renders pages through fetcher.
func New(cfg *config.Config, fetcher PageFetcher, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:        cfg,
		fetcher:    fetcher,
		logger:     logger,
		pool:       utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visitedURL: utils.NewStringSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		now: time.Now,
	}
}

// Scrape walks every configured ZIP code and page. Failed pages and listings
// are logged and skipped; the error is non-nil only if ctx ends the run.
func (s *Scraper) Scrape(ctx context.Context) ([]*models.RawVehicleRecord, error) {
	s.logger.Info("[carscom] Starting scrape: %d ZIP codes, %d pages each",
		len(s.cfg.ZipCodes), s.cfg.PagesPerZip)

	for _, zip := range s.cfg.ZipCodes {
		for page := 1; page <= s.cfg.PagesPerZip; page++ {
			if err := ctx.Err(); err != nil {
				return s.listings, err
			}

			cards, err := s.scrapeResultsPage(ctx, zip, page)
			if err != nil {
				s.logger.Error("[carscom] ZIP %s page %d failed: %v", zip, page, err)
				break
			}
			if len(cards) == 0 {
				s.logger.Warn("[carscom] ZIP %s page %d returned 0 listings, moving on", zip, page)
				break
			}

			s.scrapeDetails(ctx, zip, cards)
			s.logger.Info("[carscom] ZIP %s page %d done, %d listings so far", zip, page, len(s.listings))
		}
	}

	s.logger.Info("[carscom] Scrape complete, total raw listings: %d", len(s.listings))
	return s.listings, nil
}

func (s *Scraper) scrapeResultsPage(ctx context.Context, zip string, page int) ([]Card, error) {
	url := fmt.Sprintf("%s/shopping/results/?page=%d&zip=%s", s.cfg.CarsBaseURL, page, zip)

	var cards []Card
	err := s.retry.Do(ctx, fmt.Sprintf("results-%s-%d", zip, page), func() error {
		html, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return err
		}
		cards, err = ParseResultsPage(html, s.cfg.CarsBaseURL)
		return err
	})
	return cards, err
}

func (s *Scraper) scrapeDetails(ctx context.Context, zip string, cards []Card) {
	for _, card := range cards {
		c := card
		if !s.visitedURL.Add(c.DetailURL) {
			s.logger.Debug("[carscom] Skipping duplicate: %s", c.DetailURL)
			continue
		}

		s.pool.Submit(func() {
			rec, err := s.scrapeListing(ctx, zip, c)
			if err != nil {
				s.logger.Warn("[carscom] Listing %s skipped: %v", c.DetailURL, err)
				return
			}
			s.mu.Lock()
			s.listings = append(s.listings, rec)
			s.mu.Unlock()
		})
	}
	s.pool.Wait()
}

func (s *Scraper) scrapeListing(ctx context.Context, zip string, card Card) (*models.RawVehicleRecord, error) {
	html, err := s.fetcher.Fetch(ctx, card.DetailURL)
	if err != nil {
		return nil, err
	}
	specs, err := ParseDetailPage(html)
	if err != nil {
		return nil, err
	}

	return &models.RawVehicleRecord{
		VIN:           strings.ToUpper(specs[specVIN]),
		Name:          card.Name,
		Price:         card.Price,
		Mileage:       specs[specMileage],
		ExteriorColor: specs[specExteriorColor],
		InteriorColor: specs[specInteriorColor],
		Drivetrain:    specs[specDrivetrain],
		FuelType:      specs[specFuelType],
		Transmission:  specs[specTransmission],
		Engine:        specs[specEngine],
		Source:        source,
		ZipLocation:   zip,
		CapturedAt:    s.now(),
		Decoded:       false,
	}, nil
}

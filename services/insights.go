package services

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(vehicles []*models.CleanedVehicleRecord) *models.InsightReport {
	report := &models.InsightReport{
		ByMake:       make(map[string]int),
		ByFuelType:   make(map[string]int),
		ByDrivetrain: make(map[string]int),
	}

	if len(vehicles) == 0 {
		return report
	}

	report.TotalVehicles = len(vehicles)

	var total float64
	for _, v := range vehicles {
		if v.Make != "" {
			report.ByMake[v.Make]++
		}
		if v.FuelType != "" {
			report.ByFuelType[string(v.FuelType)]++
		}
		if v.Drivetrain != "" {
			report.ByDrivetrain[string(v.Drivetrain)]++
		}

		// Missing and zero prices are left out of the price stats
		if v.Price == nil || *v.Price <= 0 {
			continue
		}
		price := *v.Price
		if report.PricedVehicles == 0 || price < report.MinPrice {
			report.MinPrice = price
		}
		if report.PricedVehicles == 0 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = v
		}
		report.PricedVehicles++
		total += price
	}

	if report.PricedVehicles > 0 {
		report.AveragePrice = round2(total / float64(report.PricedVehicles))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[insights] Report over %d vehicles (%d priced)", report.TotalVehicles, report.PricedVehicles)
	return report
}

func (s *InsightService) Print(w io.Writer, r *models.InsightReport) {
	overview := newTable(w, "Cleaned Vehicle Insights")
	overview.AppendRows([]table.Row{
		{"Total observations", r.TotalVehicles},
		{"With a price", r.PricedVehicles},
	})
	if r.PricedVehicles > 0 {
		overview.AppendSeparator()
		overview.AppendRows([]table.Row{
			{"Average price", fmt.Sprintf("$%.2f", r.AveragePrice)},
			{"Minimum price", fmt.Sprintf("$%.2f", r.MinPrice)},
			{"Maximum price", fmt.Sprintf("$%.2f", r.MaxPrice)},
		})
	}
	if r.MostExpensive != nil {
		m := r.MostExpensive
		overview.AppendRow(table.Row{"Most expensive", truncate(fmt.Sprintf("%s %s %s (%s)", yearString(m.Year), m.Make, m.Model, m.VIN), 50)})
	}
	overview.Render()

	printCounts(w, "By Make", r.ByMake)
	printCounts(w, "By Fuel Type", r.ByFuelType)
	printCounts(w, "By Drivetrain", r.ByDrivetrain)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}

	type kv struct {
		key   string
		count int
	}
	var rows []kv
	for k, c := range counts {
		rows = append(rows, kv{k, c})
	}
	// Sort by count descending, then name
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].key < rows[j].key
	})

	t := newTable(w, title)
	for _, r := range rows {
		t.AppendRow(table.Row{truncate(r.key, 28), r.count})
	}
	t.Render()
}

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func yearString(y *int) string {
	if y == nil {
		return "????"
	}
	return fmt.Sprintf("%d", *y)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// truncate shortens s to at most max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

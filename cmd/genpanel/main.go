// Command genpanel generates a deterministic mock theft panel for local
// development and test fixtures. It runs the actual alert engine over the
// generated records so the printed stats match real service behavior.
//
// Usage:
//
//	go run ./cmd/genpanel \
//	  -months-out data/mock/months.json \
//	  -panel-out data/mock/theft_panel.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/XINRUIQI/CASA0028-Assessment01/internal/adapter/kafka"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/config"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/dataset"
	"github.com/XINRUIQI/CASA0028-Assessment01/internal/domain"
)

// boroughs provide realistic area names; IDs follow the GSS code style.
var boroughs = []string{
	"Camden", "Hackney", "Islington", "Lambeth", "Southwark",
	"Tower Hamlets", "Westminster", "Newham", "Haringey", "Croydon",
	"Brent", "Ealing", "Greenwich", "Lewisham", "Wandsworth",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	monthsOut := flag.String("months-out", "data/mock/months.json", "output path for the month list")
	panelOut := flag.String("panel-out", "data/mock/theft_panel.json", "output path for the panel records")
	start := flag.String("start", "2024-01", "first month (YYYY-MM)")
	nMonths := flag.Int("n-months", 12, "number of months to generate")
	nAreas := flag.Int("n-areas", 12, "number of areas to generate")
	seed := flag.Int64("seed", 42, "random seed")
	threshold := flag.Float64("threshold", 0.25, "spike threshold used for the printed stats")
	publish := flag.Bool("publish", false, "also publish the panel as a snapshot to Kafka")
	flag.Parse()

	if *nAreas > len(boroughs) {
		return fmt.Errorf("at most %d areas are supported", len(boroughs))
	}

	months, err := monthRange(*start, *nMonths)
	if err != nil {
		return err
	}

	records := generatePanel(months, *nAreas, rand.New(rand.NewSource(*seed)))

	if err := writeJSON(*monthsOut, months); err != nil {
		return fmt.Errorf("writing months: %w", err)
	}
	log.Printf("wrote %d months: %s", len(months), *monthsOut)

	if err := writeJSON(*panelOut, records); err != nil {
		return fmt.Errorf("writing panel: %w", err)
	}
	log.Printf("wrote %d records: %s", len(records), *panelOut)

	printStats(records, months, *threshold)

	if *publish {
		return publishSnapshot(months, records)
	}
	return nil
}

// monthRange expands a starting YYYY-MM into n consecutive months.
func monthRange(start string, n int) ([]string, error) {
	t, err := time.Parse("2006-01", start)
	if err != nil {
		return nil, fmt.Errorf("invalid -start %q: %w", start, err)
	}
	months := make([]string, 0, n)
	for i := 0; i < n; i++ {
		months = append(months, t.AddDate(0, i, 0).Format("2006-01"))
	}
	return months, nil
}

// generatePanel produces one record per (area, month). The first area gets a
// spike in the last month, the second a strictly increasing final trend, and
// the third a run of missing risk values; the rest drift around their base.
func generatePanel(months []string, nAreas int, rng *rand.Rand) []domain.PanelRecord {
	records := make([]domain.PanelRecord, 0, nAreas*len(months))

	for a := 0; a < nAreas; a++ {
		areaID := fmt.Sprintf("E09%06d", a+1)
		base := 0.5 + rng.Float64()*1.5
		exposure := 500 + rng.Float64()*4500

		for i, m := range months {
			risk := base * (0.9 + rng.Float64()*0.2)

			switch {
			case a == 0 && i == len(months)-1:
				// Spike: well above any plausible baseline.
				risk = base * 3
			case a == 1 && i >= len(months)-3:
				// Trend: three strictly increasing closing values.
				risk = base * (1.0 + 0.3*float64(i-(len(months)-3)+1))
			}

			rec := domain.PanelRecord{
				AreaID:     areaID,
				AreaName:   boroughs[a],
				Month:      m,
				TheftCount: int(risk * exposure / 100),
				Exposure:   exposure,
				RiskIndex:  &risk,
			}

			// Missing values: a mid-series gap, distinct from zero.
			if a == 2 && i >= 4 && i <= 6 {
				rec.RiskIndex = nil
			}

			records = append(records, rec)
		}
	}
	return records
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// printStats runs the alert engine and prints the numbers test assertions
// tend to need.
func printStats(records []domain.PanelRecord, months []string, threshold float64) {
	enriched := domain.EnrichPanel(records, threshold)
	latest := months[len(months)-1]

	levelCounts := map[domain.AlertLevel]int{}
	var spikes, trends int
	for _, r := range enriched {
		if r.Month != latest {
			continue
		}
		levelCounts[r.AlertLevel]++
		if r.AlertSpike {
			spikes++
		}
		if r.AlertTrend3 {
			trends++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Records: %d, months: %d, threshold: %g\n", len(records), len(months), threshold)
	fmt.Printf("Latest month %s: none=%d, watch=%d, warning=%d\n",
		latest, levelCounts[domain.AlertNone], levelCounts[domain.AlertWatch], levelCounts[domain.AlertWarning])
	fmt.Printf("Signals in %s: spike=%d, trend3=%d\n", latest, spikes, trends)

	top := domain.TopRanked(domain.FilterMonth(enriched, latest), domain.MetricRiskIndex, false)
	if len(top) > 0 {
		fmt.Printf("Top area by risk_index: %s (%s)\n", top[0].AreaID, top[0].AreaName)
	}
}

// publishSnapshot pushes the generated panel to the configured snapshot
// topic, exercising the same refresh path the service consumes.
func publishSnapshot(months []string, records []domain.PanelRecord) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Fixed clock keeps LoadedAt reproducible across runs.
	dataset.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)))
	defer dataset.SetClock(nil)

	snap, err := dataset.NewSnapshot(months, records, nil, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("build snapshot: %w", err)
	}

	publisher := kafkaadapter.NewPublisher(cfg, slog.Default())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := publisher.PublishSnapshot(ctx, snap); err != nil {
		return err
	}
	log.Printf("published snapshot to %s", cfg.KafkaSnapshotTopic)
	return nil
}

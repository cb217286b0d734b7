// Command demo drives an adaptive cache strategy controller with a
// synthetic workload and prints the decisions it makes. It exists to
// exercise the full public surface end to end; nothing here is needed in
// production.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"adaptivecache/internal/adaptive"
	"adaptivecache/internal/config"
	"adaptivecache/internal/logging"
	"adaptivecache/internal/metrics"
	"adaptivecache/internal/types"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg, err := config.Load(os.Getenv("ADAPTIVE_CACHE_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	// Tighten the tunables so the demo shows transitions in seconds rather
	// than the production defaults of minutes.
	cfg.TrainingInterval = 500 * time.Millisecond
	cfg.SwitchCooldown = 2 * time.Second
	cfg.MinSamplesForTraining = 30

	logger := logging.New(logging.ParseLevel(os.Getenv("LOG_LEVEL")))
	collector := metrics.NewCollector()
	registry := adaptive.NewRegistry(cfg, logger, collector)
	defer registry.StopAll()

	ctrl, err := registry.GetOrCreate("demo-cache", nil)
	if err != nil {
		log.Fatalf("failed to create controller: %v", err)
	}

	heading := color.New(color.FgCyan, color.Bold)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	heading.Println("adaptive cache strategy controller demo")
	fmt.Println()

	// Three workload regimes: warm-up at mediocre efficiency, a healthy
	// steady state, then a collapse that should trip the fallback path.
	regimes := []struct {
		name       string
		efficiency float64
		rounds     int
	}{
		{"warm-up", 0.65, 80},
		{"steady state", 0.97, 40},
		{"collapse", 0.25, 20},
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	accessWindow := make([]types.AccessRecord, 0, 256)

	for _, regime := range regimes {
		warn.Printf("--- regime: %s (target efficiency %.2f)\n", regime.name, regime.efficiency)

		for i := 0; i < regime.rounds; i++ {
			now := time.Now()
			accessWindow = append(accessWindow, types.AccessRecord{Timestamp: now})
			if len(accessWindow) > 200 {
				accessWindow = accessWindow[1:]
			}

			m := types.CacheMetrics{
				HitRate:         regime.efficiency + rng.Float64()*0.02,
				AvgAccessTimeMs: 1.0 + rng.Float64(),
				CacheEfficiency: regime.efficiency + (rng.Float64()-0.5)*0.02,
				MemoryUsageMB:   256 + rng.Float64()*32,
				TotalRequests:   int64(1000 + i),
				DataSizeAvg:     4096,
			}

			ctrl.RecordPerformance(m, accessWindow)

			if recommended := ctrl.RecommendedStrategy(m); recommended != ctrl.CurrentStrategy() {
				ctrl.ApplyStrategy(recommended)
			}
			time.Sleep(25 * time.Millisecond)
		}

		status := ctrl.Status()
		good.Printf("mode=%s phase=%s strategy=%s samples=%d recent=%.3f adaptations=%d fallbacks=%d\n\n",
			status.Mode, status.Phase, status.CurrentStrategy,
			status.SampleCount, status.RecentPerformance,
			status.Statistics.Adaptations, status.Statistics.FallbackActivations)
	}

	heading.Println("advisories")
	for _, rec := range ctrl.Recommendations() {
		fmt.Printf("  [impact %.2f] %s\n", rec.ImpactScore, rec.Description)
	}
}

// Command planctl runs the trial search once from the command line and
// prints the best plan: mileage statistics, per-vehicle routes, and
// per-package deadline compliance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fleetnav/internal/config"
	"fleetnav/internal/ingest"
	"fleetnav/internal/plan"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("FLEETNAV_CONFIG"), "path to config YAML")
	trials := flag.Int("trials", 0, "override trial count")
	seed := flag.Int64("seed", 0, "override base seed")
	workers := flag.Int("workers", 0, "override worker count")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *trials > 0 {
		cfg.Search.Trials = *trials
	}
	if *seed != 0 {
		cfg.Search.Seed = *seed
	}
	if *workers > 0 {
		cfg.Search.Workers = *workers
	}

	day, err := cfg.Scenario.DayTime()
	if err != nil {
		log.Fatalf("failed to resolve scenario day: %v", err)
	}
	start, err := cfg.Scenario.StartTime()
	if err != nil {
		log.Fatalf("failed to resolve start time: %v", err)
	}
	pkgs, err := ingest.LoadPackages(cfg.Scenario.PackagesCSV, day, start)
	if err != nil {
		log.Fatalf("failed to load packages: %v", err)
	}
	m, err := ingest.LoadMatrix(cfg.Scenario.DistancesCSV)
	if err != nil {
		log.Fatalf("failed to load distances: %v", err)
	}

	sc := plan.Scenario{
		Name:     cfg.Scenario.Name,
		Day:      day,
		Start:    start,
		Packages: pkgs,
		Matrix:   m,
		Vehicles: cfg.Fleet.Vehicles,
		Capacity: cfg.Fleet.Capacity,
		SpeedMPH: cfg.Fleet.SpeedMPH,
	}

	ctx := context.Background()
	if cfg.Search.BudgetMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Search.BudgetMs)*time.Millisecond)
		defer cancel()
	}

	res, err := plan.Run(ctx, sc, plan.Options{
		Trials:  cfg.Search.Trials,
		Seed:    cfg.Search.Seed,
		Workers: cfg.Search.Workers,
		Logger:  log.Default(),
	})
	if err != nil {
		log.Fatalf("search failed: %v", err)
	}
	printReport(sc, res)
}

func printReport(sc plan.Scenario, res *plan.Result) {
	fmt.Printf("scenario %s: %d packages, %d vehicles\n", sc.Name, len(sc.Packages), sc.Vehicles)
	fmt.Printf("trials %d, feasible %d, seed %d\n", res.Trials, res.FeasibleRuns, res.Seed)
	fmt.Printf("mileage best %.1f worst %.1f avg %.1f\n\n", res.BestMileage, res.WorstMileage, res.AvgMileage)

	for _, v := range res.Best.Vehicles {
		fmt.Printf("vehicle %d: %.1f mi, returned %s, route %v\n",
			v.ID, v.Mileage, v.ReturnedAt.Format("15:04"), v.Route)
	}

	fmt.Println()
	late := 0
	for _, p := range res.Best.Packages {
		line := fmt.Sprintf("package %2d  %-30s delivered %s", p.ID, p.EffectiveLocation(p.DeliveredAt), p.DeliveredAt.Format("15:04"))
		if p.HasDeadline() {
			if p.DeliveredAt.After(p.Deadline) {
				late++
				line += fmt.Sprintf("  LATE (deadline %s)", p.Deadline.Format("15:04"))
			} else {
				line += fmt.Sprintf("  (deadline %s)", p.Deadline.Format("15:04"))
			}
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d packages delivered, %d late\n", len(res.Best.Packages), late)
}

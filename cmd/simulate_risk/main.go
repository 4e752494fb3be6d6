package main

import (
	"flag"
	"fmt"
	"strings"

	"doubleordie/crypto"
	"doubleordie/game"
)

func main() {
	batches := flag.Int("batches", 5, "number of batches")
	games := flag.Int("games", 1000, "games per batch")
	maxTarget := flag.Int("max-target", 10, "highest cash-out target to simulate")
	seed := flag.String("seed", "", "fixed seed (default: random per batch)")
	flag.Parse()

	fmt.Printf("🎲 Running %d batches of %d games per target...\n", *batches, *games)
	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("%-8s %-10s %-10s %-12s %-12s\n", "Target", "Survival", "Expected", "Avg banked", "Expected")

	for target := 1; target <= *maxTarget; target++ {
		var survived, banked float64
		var last game.SimulationStats

		for batch := 1; batch <= *batches; batch++ {
			batchSeed := *seed
			if batchSeed == "" {
				batchSeed, _ = crypto.GenerateServerNonce()
			}
			batchSeed = fmt.Sprintf("%s-%d-%d", batchSeed, target, batch)

			last = game.SimulateStrategy(game.SeededDraws(batchSeed), game.DefaultTuning, target, *games)
			survived += last.SurvivalRate
			banked += last.AvgBanked
		}

		n := float64(*batches)
		fmt.Printf("x%-7d %-10.4f %-10.4f %-12.3f %-12.3f\n",
			int64(1)<<target, survived/n, last.ExpectedSurvival, banked/n, last.ExpectedBanked)
	}

	fmt.Println(strings.Repeat("=", 62))
	fmt.Printf("📐 Risk curve: base %.2f, cap %.2f, midpoint %.0f\n",
		game.DefaultTuning.RiskBase, game.DefaultTuning.RiskCap, game.DefaultTuning.RiskMidpoint)
}

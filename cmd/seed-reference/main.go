// seed-reference loads the lobster type and weight class taxonomies.
// Idempotent: rows are matched by their unique name/range and only inserted
// when missing, so rerunning against a live database is safe.
//
// Usage (from backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-reference
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/seaharvest/lobsterstock_backend/config"
	"github.com/seaharvest/lobsterstock_backend/models"
)

var lobsterTypes = []string{
	"Bamboo",
	"Ornate",
	"Painted",
	"Scalloped",
	"Slipper",
}

// Weight ranges in grams. Labels are "lo-hi" so the dashboard can derive a
// midpoint for the biomass estimate.
var weightRanges = []string{
	"030-100",
	"100-200",
	"200-300",
	"300-500",
	"500-1000",
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	created := 0
	for _, name := range lobsterTypes {
		row := models.LobsterType{Name: name}
		res := db.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&row)
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "failed to seed lobster type %q: %v\n", name, res.Error)
			os.Exit(1)
		}
		created += int(res.RowsAffected)
	}
	fmt.Printf("Lobster types: %d created, %d already present\n", created, len(lobsterTypes)-created)

	created = 0
	for _, rng := range weightRanges {
		row := models.WeightClass{WeightRange: rng}
		res := db.WithContext(ctx).Where("weight_range = ?", rng).FirstOrCreate(&row)
		if res.Error != nil {
			fmt.Fprintf(os.Stderr, "failed to seed weight class %q: %v\n", rng, res.Error)
			os.Exit(1)
		}
		created += int(res.RowsAffected)
	}
	fmt.Printf("Weight classes: %d created, %d already present\n", created, len(weightRanges)-created)
}

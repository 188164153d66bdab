// Command recalc-tiers recomputes every guest's stored tier from their
// current point balance. Stored tiers only drift from the thresholds after
// manual adjustments or threshold changes; this backfills them. Dry run by
// default, pass --apply to write.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stayloop/loyalty-backend/internal/config"
	"github.com/stayloop/loyalty-backend/internal/database"
	"github.com/stayloop/loyalty-backend/pkg/tier"
)

func main() {
	apply := flag.Bool("apply", false, "write corrected tiers instead of reporting them")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewGuestRepository(db)

	guests, err := repo.ListAll()
	if err != nil {
		logger.Fatalf("Failed to list guests: %v", err)
	}

	drifted := 0
	fixed := 0
	for _, guest := range guests {
		expected := tier.ForPoints(guest.LoyaltyPoints)
		if guest.LoyaltyTier == expected {
			continue
		}
		drifted++

		entry := logger.WithFields(logrus.Fields{
			"guest_id":    guest.ID,
			"points":      guest.LoyaltyPoints,
			"stored_tier": guest.LoyaltyTier,
			"computed":    expected,
		})

		if !*apply {
			entry.Info("Tier drift detected (dry run)")
			continue
		}

		if _, err := repo.OverrideTier(guest.ID, expected, time.Now()); err != nil {
			entry.WithError(err).Error("Failed to correct tier")
			continue
		}
		fixed++
		entry.Info("Tier corrected")
	}

	logger.WithFields(logrus.Fields{
		"guests_checked": len(guests),
		"drifted":        drifted,
		"corrected":      fixed,
		"applied":        *apply,
	}).Info("Tier recalculation finished")
}

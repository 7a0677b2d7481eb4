package cron

import (
	"time"

	"github.com/IMINABO1/Vault/server/logger"
	"github.com/go-co-op/gocron"
)

var logg = logger.NewLogger("cron")

// NewCronScheduler returns a scheduler running in timeZone, falling back
// to UTC for an unknown zone. Job tags must be unique.
func NewCronScheduler(timeZone string) *gocron.Scheduler {
	location, err := time.LoadLocation(timeZone)
	if err != nil {
		logg.Warnf("unknown time zone %q, using UTC: %v", timeZone, err)
		location = time.UTC
	}

	scheduler := gocron.NewScheduler(location)
	scheduler.TagsUnique()

	return scheduler
}

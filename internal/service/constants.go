package service

import "trainload/internal/store"

const (
	// Pagination limits
	RecentActivitiesLimit = 5  // dashboard list
	StreamBatchSize       = 50 // streams fetched per sync run

	// Time windows
	ChartDays     = 90
	Rolling30Days = 30
)

// VO2maxSports are the sports with an estimator, in display order
var VO2maxSports = []store.Sport{store.SportRun, store.SportBike}

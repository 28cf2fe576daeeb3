// Package roomcheck drives a running exporter against a synthetic rooms API
// and checks that every scrape reflects exactly the snapshot the API served.
package roomcheck

import "time"

// Config holds configuration for a check run.
type Config struct {
	Listen          string        // address the synthetic rooms API listens on
	ExporterURL     string        // scrape URL of the exporter under test
	Scrapes         int           // number of scrapes to verify
	Rooms           int           // rooms per snapshot
	MaxAppointments int           // upper bound of appointments per room
	DuplicateEvery  int           // every Nth room repeats its first appointment; 0 disables
	Timeout         time.Duration // per-scrape HTTP timeout
	Interval        time.Duration // pause between scrapes
	Verbose         bool
}

// Stats holds run statistics.
type Stats struct {
	Scrapes          int
	Verified         int
	RoomsSeen        int
	AppointmentsSeen int
	SeriesSeen       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}

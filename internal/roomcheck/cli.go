package roomcheck

import "os"

// ShowHelp prints usage information for the roomcheck tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Room Exporter Check Tool
========================

Serves a synthetic rooms API and scrapes a running exporter, checking that
each scrape shows exactly the snapshot the API just served.

Usage:
  API_URL=http://localhost:8081 roomexporter &
  roomcheck [options]

Options:
  -listen string
        Address for the synthetic rooms API (default ":8081")
  -exporter string
        Scrape URL of the exporter (default "http://localhost:8000/metrics")
  -scrapes int
        Number of scrapes to verify (default 10)
  -rooms int
        Rooms per snapshot (default 5)
  -max-appointments int
        Maximum appointments per room (default 4)
  -duplicate-every int
        Every Nth room repeats an appointment to exercise series collapse (default 0, off)
  -interval duration
        Pause between scrapes (default 0)
  -timeout duration
        Per-scrape HTTP timeout (default 30s)
  -verbose
        Log every verified scrape
  -help
        Show this help message
`)
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/roomexporter/internal/roomcheck"
	"github.com/okian/roomexporter/pkg/logger"
)

func main() {
	var (
		listen          = flag.String("listen", roomcheck.DefaultListen, "Address for the synthetic rooms API")
		exporterURL     = flag.String("exporter", roomcheck.DefaultExporterURL, "Scrape URL of the exporter")
		scrapes         = flag.Int("scrapes", roomcheck.DefaultScrapes, "Number of scrapes to verify")
		rooms           = flag.Int("rooms", roomcheck.DefaultRooms, "Rooms per snapshot")
		maxAppointments = flag.Int("max-appointments", roomcheck.DefaultMaxAppointments, "Maximum appointments per room")
		duplicateEvery  = flag.Int("duplicate-every", 0, "Every Nth room repeats an appointment")
		interval        = flag.Duration("interval", 0, "Pause between scrapes")
		timeout         = flag.Duration("timeout", roomcheck.DefaultTimeout, "Per-scrape HTTP timeout")
		verbose         = flag.Bool("verbose", false, "Log every verified scrape")
		help            = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		roomcheck.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	config := &roomcheck.Config{
		Listen:          *listen,
		ExporterURL:     *exporterURL,
		Scrapes:         *scrapes,
		Rooms:           *rooms,
		MaxAppointments: *maxAppointments,
		DuplicateEvery:  *duplicateEvery,
		Interval:        *interval,
		Timeout:         *timeout,
		Verbose:         *verbose,
	}

	if _, err := roomcheck.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "check failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// Package projection maps room snapshots onto Prometheus gauge families.
//
// A Projector owns its own registry. Every Project call clears both gauge
// families and repopulates them from the snapshot, so the registry only ever
// describes the latest snapshot. The write lock spans the whole
// reset-and-repopulate step and Gather takes the read lock, so a reader never
// observes a half-emptied registry.
package projection

import (
	"strconv"
	"sync"

	"github.com/okian/roomexporter/internal/domain/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metric names exposed to scrapers.
const (
	OccupiedMetric    = "meeting_room_occupied"
	AppointmentMetric = "meeting_room_appointment_details"
)

// Label names, in declaration order.
var (
	occupiedLabels    = []string{"room_alias", "room_name"}
	appointmentLabels = []string{"room_alias", "subject", "organizer", "private", "start", "end"}
)

// VariableLabels returns every label name the room families set per series.
func VariableLabels() []string {
	names := append([]string{}, occupiedLabels...)
	return append(names, appointmentLabels...)
}

// Stats summarizes a single projection.
type Stats struct {
	Rooms        int
	BusyRooms    int
	Appointments int
	// Series counts distinct appointment series; it is lower than
	// Appointments when appointments collapse onto the same label set.
	Series int
}

// Projector holds the room metric registry.
type Projector struct {
	mu sync.RWMutex

	registry    *prometheus.Registry
	occupied    *prometheus.GaugeVec
	appointment *prometheus.GaugeVec

	constLabels prometheus.Labels
}

// New creates a Projector with a fresh registry holding both gauge families.
func New(opts ...Option) *Projector {
	p := &Projector{
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(p)
	}

	auto := promauto.With(p.registry)
	p.occupied = auto.NewGaugeVec(prometheus.GaugeOpts{
		Name:        OccupiedMetric,
		Help:        "Indicates if the room is currently occupied",
		ConstLabels: p.constLabels,
	}, occupiedLabels)
	p.appointment = auto.NewGaugeVec(prometheus.GaugeOpts{
		Name:        AppointmentMetric,
		Help:        "Details of individual appointments in meeting rooms",
		ConstLabels: p.constLabels,
	}, appointmentLabels)

	return p
}

// Project replaces the registry contents with the given snapshot.
func (p *Projector) Project(rooms []model.Room) Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.occupied.Reset()
	p.appointment.Reset()

	var st Stats
	seen := make(map[[6]string]struct{})
	for i := range rooms {
		room := &rooms[i]
		st.Rooms++
		if room.Busy {
			st.BusyRooms++
		}
		p.occupied.WithLabelValues(room.RoomAlias, room.Name).Set(occupancy(room.Busy))

		for _, a := range room.Appointments {
			lv := appointmentLabelValues(room.RoomAlias, a)
			p.appointment.WithLabelValues(lv[:]...).Set(1)
			st.Appointments++
			seen[lv] = struct{}{}
		}
	}
	st.Series = len(seen)
	return st
}

// Gather implements prometheus.Gatherer under the projector's read lock.
func (p *Projector) Gather() ([]*dto.MetricFamily, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.registry.Gather()
}

func occupancy(busy bool) float64 {
	if busy {
		return 1
	}
	return 0
}

// appointmentLabelValues renders an appointment in appointmentLabels order.
func appointmentLabelValues(alias string, a model.Appointment) [6]string {
	return [6]string{
		alias,
		a.Subject,
		a.Organizer,
		strconv.FormatBool(a.Private),
		strconv.FormatInt(a.Start, 10),
		strconv.FormatInt(a.End, 10),
	}
}

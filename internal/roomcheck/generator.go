package roomcheck

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/roomexporter/internal/domain/model"
)

const (
	slotSeconds   = 30 * 60
	maxPrivateOdd = 4 // one in four appointments is private
)

var organizers = []string{"alice", "bob", "carol", "dave", "erin", "frank"}

// randomInt returns a uniform int in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 0 {
		return 0
	}
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Generator produces a fresh room snapshot on every call and remembers the
// last one it handed out.
type Generator struct {
	rooms           int
	maxAppointments int
	duplicateEvery  int
	now             func() time.Time

	mu   sync.Mutex
	last []model.Room
	seq  int
}

// NewGenerator creates a generator from cfg.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		rooms:           cfg.Rooms,
		maxAppointments: cfg.MaxAppointments,
		duplicateEvery:  cfg.DuplicateEvery,
		now:             time.Now,
	}
}

// Next builds and records a new snapshot. Room aliases are stable across
// calls; appointments are new every time so stale series are detectable.
func (g *Generator) Next() []model.Room {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	base := g.now().Unix()
	rooms := make([]model.Room, g.rooms)
	for i := range rooms {
		alias := "room-" + strconv.Itoa(i+1)
		n := randomInt(g.maxAppointments + 1)
		appts := make([]model.Appointment, 0, n+1)
		for j := 0; j < n; j++ {
			start := base + int64(j*slotSeconds)
			appts = append(appts, model.Appointment{
				Subject:   fmt.Sprintf("check-%d %s", g.seq, uuid.NewString()[:8]),
				Organizer: organizers[randomInt(len(organizers))],
				Start:     start,
				End:       start + slotSeconds,
				Private:   randomInt(maxPrivateOdd) == 0,
			})
		}
		if g.duplicateEvery > 0 && (i+1)%g.duplicateEvery == 0 && len(appts) > 0 {
			appts = append(appts, appts[0])
		}
		rooms[i] = model.Room{
			Roomlist:     "roomcheck@example.com",
			Name:         fmt.Sprintf("Room %d", i+1),
			RoomAlias:    alias,
			Email:        alias + "@example.com",
			Busy:         randomInt(2) == 0,
			Appointments: appts,
		}
	}
	g.last = rooms
	return rooms
}

// Last returns the most recently generated snapshot and its sequence
// number. The sequence is zero before the first call to Next.
func (g *Generator) Last() ([]model.Room, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last, g.seq
}

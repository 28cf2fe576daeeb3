package roomcheck

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/roomexporter/internal/domain/model"
)

const (
	occupiedPrefix    = "meeting_room_occupied{"
	appointmentPrefix = "meeting_room_appointment_details{"
)

// expectedSeries counts the distinct appointment label sets in rooms.
func expectedSeries(rooms []model.Room) int {
	type key struct {
		alias, subject, organizer string
		private                   bool
		start, end                int64
	}
	seen := make(map[key]struct{})
	for _, r := range rooms {
		for _, a := range r.Appointments {
			seen[key{r.RoomAlias, a.Subject, a.Organizer, a.Private, a.Start, a.End}] = struct{}{}
		}
	}
	return len(seen)
}

// verifyScrape checks that body describes exactly snapshot: one occupancy
// line per room, one appointment line per distinct appointment, and no
// appointment left over from an earlier snapshot.
func verifyScrape(body string, snapshot []model.Room, seq int) (occupied, appointments int, err error) {
	current := `subject="check-` + strconv.Itoa(seq) + " "

	sc := bufio.NewScanner(strings.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, occupiedPrefix):
			occupied++
		case strings.HasPrefix(line, appointmentPrefix):
			appointments++
			if !strings.Contains(line, current) {
				return occupied, appointments, fmt.Errorf("stale appointment series: %s", line)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return occupied, appointments, fmt.Errorf("read scrape body: %w", err)
	}

	if occupied != len(snapshot) {
		return occupied, appointments, fmt.Errorf("occupancy series: got %d, want %d", occupied, len(snapshot))
	}
	if want := expectedSeries(snapshot); appointments != want {
		return occupied, appointments, fmt.Errorf("appointment series: got %d, want %d", appointments, want)
	}
	return occupied, appointments, nil
}

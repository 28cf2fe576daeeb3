package roomcheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/roomexporter/internal/adapters/http/api"
	"github.com/okian/roomexporter/internal/adapters/upstream"
	service "github.com/okian/roomexporter/internal/app"
	"github.com/okian/roomexporter/internal/domain/model"
	"github.com/okian/roomexporter/internal/domain/projection"
	"github.com/okian/roomexporter/pkg/logger"
	"github.com/okian/roomexporter/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerator(t *testing.T) {
	Convey("Given a generator", t, func() {
		gen := NewGenerator(&Config{Rooms: 3, MaxAppointments: 2, DuplicateEvery: 1})

		Convey("When nothing has been generated", func() {
			rooms, seq := gen.Last()
			So(rooms, ShouldBeNil)
			So(seq, ShouldEqual, 0)
		})

		Convey("When generating twice", func() {
			first := gen.Next()
			second := gen.Next()
			last, seq := gen.Last()

			Convey("Then aliases are stable and the last snapshot is remembered", func() {
				So(first, ShouldHaveLength, 3)
				So(second, ShouldHaveLength, 3)
				for i := range first {
					So(first[i].RoomAlias, ShouldEqual, second[i].RoomAlias)
					So(len(first[i].Appointments), ShouldBeLessThanOrEqualTo, 3)
				}
				So(last, ShouldResemble, second)
				So(seq, ShouldEqual, 2)
			})

			Convey("And appointments carry the sequence in their subject", func() {
				for _, r := range second {
					for _, a := range r.Appointments {
						So(a.Subject, ShouldStartWith, "check-2 ")
						So(a.End, ShouldBeGreaterThan, a.Start)
					}
				}
			})
		})
	})
}

func TestVerifyScrape(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		snapshot := []model.Room{{
			Name: "Room 1", RoomAlias: "room-1", Busy: true,
			Appointments: []model.Appointment{
				{Subject: "check-4 aaaa", Organizer: "bob", Start: 1, End: 2},
				{Subject: "check-4 aaaa", Organizer: "bob", Start: 1, End: 2},
			},
		}}
		good := strings.Join([]string{
			`# TYPE meeting_room_occupied gauge`,
			`meeting_room_occupied{room_alias="room-1",room_name="Room 1"} 1`,
			`meeting_room_appointment_details{end="2",organizer="bob",private="false",room_alias="room-1",start="1",subject="check-4 aaaa"} 1`,
		}, "\n")

		Convey("When the scrape matches", func() {
			occupied, series, err := verifyScrape(good, snapshot, 4)

			Convey("Then duplicates are counted once", func() {
				So(err, ShouldBeNil)
				So(occupied, ShouldEqual, 1)
				So(series, ShouldEqual, 1)
			})
		})

		Convey("When a series from an earlier snapshot is still present", func() {
			stale := good + "\n" + `meeting_room_appointment_details{end="2",organizer="bob",private="false",room_alias="room-1",start="1",subject="check-3 bbbb"} 1`
			_, _, err := verifyScrape(stale, snapshot, 4)

			Convey("Then it is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "stale")
			})
		})

		Convey("When a room is missing", func() {
			_, _, err := verifyScrape("", snapshot, 4)

			Convey("Then the occupancy count mismatch is reported", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "occupancy")
			})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given a synthetic rooms API", t, func() {
		ctx := context.Background()
		config := &Config{Scrapes: 5, Rooms: 4, MaxAppointments: 3, DuplicateEvery: 2}
		gen := NewGenerator(config)
		rooms := httptest.NewServer(NewRoomsHandler(gen))
		defer rooms.Close()

		Convey("When the real exporter stack scrapes it", func() {
			client, err := upstream.New(rooms.URL)
			So(err, ShouldBeNil)
			svc := service.New(client,
				service.WithProjector(projection.New()),
				service.WithMetrics(metrics.NewManager(metrics.WithMetricsEnabled(false))),
			)
			mux := http.NewServeMux()
			api.NewServer(svc, svc, nil, logger.Nop()).Register(ctx, mux)
			exporter := httptest.NewServer(mux)
			defer exporter.Close()
			config.ExporterURL = exporter.URL + "/metrics"

			stats, err := Verify(ctx, config, gen)

			Convey("Then every scrape matches its snapshot", func() {
				So(err, ShouldBeNil)
				So(stats.Verified, ShouldEqual, 5)
				So(stats.RoomsSeen, ShouldEqual, 20)
				So(stats.SeriesSeen, ShouldBeLessThanOrEqualTo, stats.AppointmentsSeen)
			})
		})

		Convey("When an exporter keeps old series around", func() {
			var history []string
			leaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				resp, err := http.Get(rooms.URL + RoomsPath)
				if err == nil {
					_ = resp.Body.Close()
				}
				snapshot, seq := gen.Last()
				for _, room := range snapshot {
					history = append(history, fmt.Sprintf(`meeting_room_appointment_details{room_alias=%q,subject="check-%d x"} 1`, room.RoomAlias, seq))
				}
				for _, room := range snapshot {
					fmt.Fprintf(w, "meeting_room_occupied{room_alias=%q,room_name=%q} 0\n", room.RoomAlias, room.Name)
				}
				fmt.Fprintln(w, strings.Join(history, "\n"))
			}))
			defer leaky.Close()
			config.ExporterURL = leaky.URL

			_, err := Verify(ctx, config, gen)

			Convey("Then verification fails", func() {
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
			})
		})

		Convey("When the exporter answers with a server error", func() {
			broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "failed to fetch data from API", http.StatusInternalServerError)
			}))
			defer broken.Close()
			config.ExporterURL = broken.URL

			stats, err := Verify(ctx, config, gen)

			Convey("Then verification stops at the first scrape", func() {
				So(errors.Is(err, ErrVerification), ShouldBeTrue)
				So(stats.Scrapes, ShouldEqual, 1)
				So(stats.Verified, ShouldEqual, 0)
			})
		})
	})
}

func TestConfigNormalize(t *testing.T) {
	Convey("Given an empty config", t, func() {
		c := &Config{MaxAppointments: -1}
		c.Normalize()

		Convey("Then defaults are applied", func() {
			So(c.Listen, ShouldEqual, DefaultListen)
			So(c.ExporterURL, ShouldEqual, DefaultExporterURL)
			So(c.Scrapes, ShouldEqual, DefaultScrapes)
			So(c.Rooms, ShouldEqual, DefaultRooms)
			So(c.MaxAppointments, ShouldEqual, DefaultMaxAppointments)
			So(c.Timeout, ShouldEqual, DefaultTimeout)
		})
	})
}

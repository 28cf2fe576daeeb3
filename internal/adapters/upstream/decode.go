package upstream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/okian/roomexporter/internal/domain/model"
)

// Wire shapes for schema v1. Pointer fields let the decoder tell a missing
// field from a zero value; every field is required.
type wireAppointment struct {
	Subject   *string `json:"Subject"`
	Organizer *string `json:"Organizer"`
	Start     *int64  `json:"Start"`
	End       *int64  `json:"End"`
	Private   *bool   `json:"Private"`
}

type wireRoom struct {
	Roomlist     *string            `json:"Roomlist"`
	Name         *string            `json:"Name"`
	RoomAlias    *string            `json:"RoomAlias"`
	Email        *string            `json:"Email"`
	Busy         *bool              `json:"Busy"`
	Appointments *[]wireAppointment `json:"Appointments"`
}

var (
	roomFields        = []string{"Roomlist", "Name", "RoomAlias", "Email", "Busy", "Appointments"}
	appointmentFields = []string{"Subject", "Organizer", "Start", "End", "Private"}
)

var errNullBody = errors.New("body is null, want a JSON array of rooms")

// UnmarshalJSON rejects field names that only match case-insensitively.
func (w *wireRoom) UnmarshalJSON(data []byte) error {
	if err := checkFieldCase(data, roomFields); err != nil {
		return err
	}
	type plain wireRoom
	return json.Unmarshal(data, (*plain)(w))
}

// UnmarshalJSON rejects field names that only match case-insensitively.
func (w *wireAppointment) UnmarshalJSON(data []byte) error {
	if err := checkFieldCase(data, appointmentFields); err != nil {
		return err
	}
	type plain wireAppointment
	return json.Unmarshal(data, (*plain)(w))
}

// checkFieldCase fails when an object key equals one of fields under case
// folding but not byte for byte. encoding/json would accept such a key.
func checkFieldCase(data []byte, fields []string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		for _, f := range fields {
			if key != f && strings.EqualFold(key, f) {
				return fmt.Errorf("field %q must be spelled %q", key, f)
			}
		}
	}
	return nil
}

// decodeRooms parses a JSON array of rooms. A literal null, a missing field,
// a field name in the wrong case or trailing data is an error, so a broken upstream is never mistaken for
// an empty one. Unknown fields are ignored.
func decodeRooms(body []byte) ([]model.Room, error) {
	trimmed := bytes.TrimSpace(body)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, errNullBody
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	var wire []wireRoom
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("schema %s: %w", SchemaVersion, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("schema %s: trailing data after rooms array", SchemaVersion)
	}

	rooms := make([]model.Room, 0, len(wire))
	for i := range wire {
		room, err := wire[i].toModel()
		if err != nil {
			return nil, fmt.Errorf("schema %s: room %d: %w", SchemaVersion, i, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (w *wireRoom) toModel() (model.Room, error) {
	switch {
	case w.Roomlist == nil:
		return model.Room{}, missing("Roomlist")
	case w.Name == nil:
		return model.Room{}, missing("Name")
	case w.RoomAlias == nil:
		return model.Room{}, missing("RoomAlias")
	case w.Email == nil:
		return model.Room{}, missing("Email")
	case w.Busy == nil:
		return model.Room{}, missing("Busy")
	case w.Appointments == nil:
		return model.Room{}, missing("Appointments")
	}

	appts := make([]model.Appointment, 0, len(*w.Appointments))
	for j, wa := range *w.Appointments {
		a, err := wa.toModel()
		if err != nil {
			return model.Room{}, fmt.Errorf("appointment %d: %w", j, err)
		}
		appts = append(appts, a)
	}

	return model.Room{
		Roomlist:     *w.Roomlist,
		Name:         *w.Name,
		RoomAlias:    *w.RoomAlias,
		Email:        *w.Email,
		Busy:         *w.Busy,
		Appointments: appts,
	}, nil
}

func (w wireAppointment) toModel() (model.Appointment, error) {
	switch {
	case w.Subject == nil:
		return model.Appointment{}, missing("Subject")
	case w.Organizer == nil:
		return model.Appointment{}, missing("Organizer")
	case w.Start == nil:
		return model.Appointment{}, missing("Start")
	case w.End == nil:
		return model.Appointment{}, missing("End")
	case w.Private == nil:
		return model.Appointment{}, missing("Private")
	}
	return model.Appointment{
		Subject:   *w.Subject,
		Organizer: *w.Organizer,
		Start:     *w.Start,
		End:       *w.End,
		Private:   *w.Private,
	}, nil
}

func missing(field string) error {
	return fmt.Errorf("missing field %q", field)
}

// Package model contains domain models passed between layers.
package model

// Appointment is a single booking on a room as reported by the rooms API.
// Two appointments with the same field values are indistinguishable to the
// metric layer.
type Appointment struct {
	Subject   string `json:"Subject"`
	Organizer string `json:"Organizer"`
	Start     int64  `json:"Start"` // epoch seconds
	End       int64  `json:"End"`   // epoch seconds
	Private   bool   `json:"Private"`
}

// Room is one meeting room and its current bookings.
// Field names mirror the upstream JSON schema.
type Room struct {
	Roomlist     string        `json:"Roomlist"`
	Name         string        `json:"Name"`
	RoomAlias    string        `json:"RoomAlias"` // stable id, primary label
	Email        string        `json:"Email"`
	Busy         bool          `json:"Busy"`
	Appointments []Appointment `json:"Appointments"`
}

// AppointmentCount returns the total number of appointments across rooms.
func AppointmentCount(rooms []Room) int {
	n := 0
	for i := range rooms {
		n += len(rooms[i].Appointments)
	}
	return n
}

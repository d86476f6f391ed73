package session

// Membership is a session's room affiliation: either Unaffiliated or InRoom
// with a non-empty room ID. The zero value is Unaffiliated.
type Membership struct {
	roomID string
	inRoom bool
}

// Unaffiliated returns the membership of a session that is in no room.
func Unaffiliated() Membership {
	return Membership{}
}

// InRoom returns the membership of a session occupying roomID.
//
// Precondition: roomID must be non-empty.
func InRoom(roomID string) Membership {
	return Membership{roomID: roomID, inRoom: true}
}

// RoomID returns the occupied room and true, or "" and false when Unaffiliated.
func (m Membership) RoomID() (string, bool) {
	return m.roomID, m.inRoom
}

// IsInRoom reports whether the session occupies a room.
func (m Membership) IsInRoom() bool {
	return m.inRoom
}

func (m Membership) String() string {
	if !m.inRoom {
		return "unaffiliated"
	}
	return "in-room(" + m.roomID + ")"
}

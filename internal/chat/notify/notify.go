// Package notify defines the outbound notifications the chat core addresses to
// sessions and the positional argument lists transports put on the wire.
package notify

// Kind names an outbound notification. The values double as wire targets.
type Kind string

const (
	KindSetNickDefault Kind = "SetNickDefault"
	KindSetNickOK      Kind = "SetNickOK"
	KindSetNickErr     Kind = "SetNickErr"
	KindRoomSysMsg     Kind = "RoomSysMsg"
	KindRoomMsg        Kind = "RoomMsg"
	KindRoomInfo       Kind = "RoomInfo"
	KindRoomList       Kind = "RoomList"
	KindCreateRoomOK   Kind = "CreateRoomOK"
	KindCreateRoomErr  Kind = "CreateRoomErr"
	KindSysMsg         Kind = "SysMsg"
)

// RoomEntry is one row of a RoomList notification.
type RoomEntry struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	MemberCount int    `json:"memberCount"`
	IsLocked    bool   `json:"isLocked"`
}

// Notification is a single outbound message. Only the fields relevant to Kind are set.
type Notification struct {
	Kind Kind
	// Name is the display name for SetNickDefault and SetNickOK.
	Name string
	// Sender is the author of a RoomMsg.
	Sender string
	// Text carries chat text, system notices and error reasons.
	Text string
	// Title and MemberCount describe a room for RoomInfo.
	Title       string
	MemberCount int
	// Rooms is the full directory for RoomList.
	Rooms []RoomEntry
}

// Arguments returns the positional arguments of n in wire order.
//
// Postcondition: Returns a non-nil slice (empty for CreateRoomOK).
func (n Notification) Arguments() []any {
	switch n.Kind {
	case KindSetNickDefault, KindSetNickOK:
		return []any{n.Name}
	case KindRoomMsg:
		return []any{n.Sender, n.Text}
	case KindRoomInfo:
		return []any{n.Title, n.MemberCount}
	case KindRoomList:
		rooms := n.Rooms
		if rooms == nil {
			rooms = []RoomEntry{}
		}
		return []any{rooms}
	case KindCreateRoomOK:
		return []any{}
	default:
		return []any{n.Text}
	}
}

func SetNickDefault(name string) Notification {
	return Notification{Kind: KindSetNickDefault, Name: name}
}

func SetNickOK(name string) Notification {
	return Notification{Kind: KindSetNickOK, Name: name}
}

func SetNickErr(reason string) Notification {
	return Notification{Kind: KindSetNickErr, Text: reason}
}

func RoomSysMsg(text string) Notification {
	return Notification{Kind: KindRoomSysMsg, Text: text}
}

func RoomMsg(sender, text string) Notification {
	return Notification{Kind: KindRoomMsg, Sender: sender, Text: text}
}

func RoomInfo(title string, memberCount int) Notification {
	return Notification{Kind: KindRoomInfo, Title: title, MemberCount: memberCount}
}

func RoomList(rooms []RoomEntry) Notification {
	return Notification{Kind: KindRoomList, Rooms: rooms}
}

func CreateRoomOK() Notification {
	return Notification{Kind: KindCreateRoomOK}
}

func CreateRoomErr(reason string) Notification {
	return Notification{Kind: KindCreateRoomErr, Text: reason}
}

func SysMsg(text string) Notification {
	return Notification{Kind: KindSysMsg, Text: text}
}

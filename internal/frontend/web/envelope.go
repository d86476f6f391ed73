package web

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
)

// Inbound targets.
const (
	TargetSetNickName     = "SetNickName"
	TargetRoomMsg         = "RoomMsg"
	TargetCreateRoom      = "CreateRoom"
	TargetJoinRoom        = "JoinRoom"
	TargetQuitRoom        = "QuitRoom"
	TargetRequestRoomList = "RequestRoomList"
)

var (
	// ErrUnknownTarget is returned for an envelope naming no inbound event.
	ErrUnknownTarget = errors.New("unknown target")
	// ErrBadArguments is returned when the argument count or types do not match the target.
	ErrBadArguments = errors.New("bad arguments")
)

// Envelope is the frame layout in both directions: an event name and its
// positional arguments.
type Envelope struct {
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

type outbound struct {
	Target    string `json:"target"`
	Arguments []any  `json:"arguments"`
}

// EncodeNotification renders n as an outbound frame.
//
// Postcondition: Returns the JSON frame body or a marshalling error.
func EncodeNotification(n notify.Notification) ([]byte, error) {
	return json.Marshal(outbound{Target: string(n.Kind), Arguments: n.Arguments()})
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	if env.Target == "" {
		return Envelope{}, fmt.Errorf("envelope without target: %w", ErrUnknownTarget)
	}
	return env, nil
}

// Dispatch applies env to chat on behalf of connID.
//
// Postcondition: Returns ErrUnknownTarget or ErrBadArguments without calling
// chat when the frame does not describe an event; otherwise returns the
// event handler's error.
func Dispatch(chat ChatService, connID string, env Envelope) error {
	switch env.Target {
	case TargetSetNickName:
		args, err := stringArgs(env, 1)
		if err != nil {
			return err
		}
		return chat.SetNickName(connID, args[0])
	case TargetRoomMsg:
		args, err := stringArgs(env, 1)
		if err != nil {
			return err
		}
		return chat.RoomMsg(connID, args[0])
	case TargetCreateRoom:
		args, err := stringArgs(env, 2)
		if err != nil {
			return err
		}
		return chat.CreateRoom(connID, args[0], args[1])
	case TargetJoinRoom:
		args, err := stringArgs(env, 2)
		if err != nil {
			return err
		}
		return chat.JoinRoom(connID, args[0], args[1])
	case TargetQuitRoom:
		if _, err := stringArgs(env, 0); err != nil {
			return err
		}
		return chat.QuitRoom(connID)
	case TargetRequestRoomList:
		if _, err := stringArgs(env, 0); err != nil {
			return err
		}
		return chat.RequestRoomList(connID)
	default:
		return fmt.Errorf("target %q: %w", env.Target, ErrUnknownTarget)
	}
}

func stringArgs(env Envelope, want int) ([]string, error) {
	if len(env.Arguments) != want {
		return nil, fmt.Errorf("%s takes %d arguments, got %d: %w", env.Target, want, len(env.Arguments), ErrBadArguments)
	}
	out := make([]string, want)
	for i, raw := range env.Arguments {
		if err := json.Unmarshal(raw, &out[i]); err != nil {
			return nil, fmt.Errorf("%s argument %d is not a string: %w", env.Target, i, ErrBadArguments)
		}
	}
	return out, nil
}

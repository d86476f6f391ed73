// Package handlers implements the Telnet chat session: it turns typed lines
// into chat events and renders queued notifications back to the terminal.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/cory-johannsen/chatrooms/internal/chat/command"
	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
	"github.com/cory-johannsen/chatrooms/internal/chat/session"
	"github.com/cory-johannsen/chatrooms/internal/chatserver"
	"github.com/cory-johannsen/chatrooms/internal/frontend/telnet"
)

// ChatService is the set of chat events a Telnet session raises.
type ChatService interface {
	Connect(connID string) (session.Session, error)
	Disconnect(connID string) error
	SetNickName(connID, name string) error
	RoomMsg(connID, text string) error
	CreateRoom(connID, title, password string) error
	JoinRoom(connID, roomID, password string) error
	QuitRoom(connID string) error
	RequestRoomList(connID string) error
}

// errQuit signals the command loop to stop cleanly.
var errQuit = errors.New("quit")

// ChatHandler runs one Telnet chat session per connection.
type ChatHandler struct {
	chat     ChatService
	commands *command.Registry
	logger   *zap.Logger
}

// NewChatHandler creates a ChatHandler.
//
// Precondition: chat, commands and logger must be non-nil.
func NewChatHandler(chat ChatService, commands *command.Registry, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		commands: commands,
		logger:   logger,
	}
}

// clientView is what the Telnet client has been told so far. The writer
// goroutine updates it from notifications; the reader consults it to resolve
// /join indexes and decide whether to prompt for a password.
type clientView struct {
	mu           sync.Mutex
	rooms        []notify.RoomEntry
	inRoom       bool
	showNextList atomic.Bool
}

func (v *clientView) observe(n notify.Notification) (render bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	switch n.Kind {
	case notify.KindRoomList:
		v.rooms = n.Rooms
		return v.showNextList.CompareAndSwap(true, false)
	case notify.KindCreateRoomOK, notify.KindRoomInfo:
		v.inRoom = true
	}
	return true
}

func (v *clientView) leave() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.inRoom = false
}

func (v *clientView) isInRoom() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.inRoom
}

// resolve maps a /join argument to a room: a 1-based index into the last
// list, or a room ID. An unknown ID is passed through for the server to reject.
//
// Postcondition: Returns false only for an out-of-range index.
func (v *clientView) resolve(arg string) (notify.RoomEntry, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if idx, err := strconv.Atoi(arg); err == nil {
		if idx < 1 || idx > len(v.rooms) {
			return notify.RoomEntry{}, false
		}
		return v.rooms[idx-1], true
	}
	for _, r := range v.rooms {
		if r.ID == arg {
			return r, true
		}
	}
	return notify.RoomEntry{ID: arg}, true
}

// HandleSession connects the client to the chat, pumps notifications to the
// terminal and runs the command loop until the client quits or disconnects.
//
// Precondition: conn must be negotiated and open.
// Postcondition: The chat session is disconnected when this method returns.
func (h *ChatHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	connID := conn.ID()
	logger := h.logger.With(zap.String("conn_id", connID), zap.String("remote_addr", conn.RemoteAddr().String()))

	sess, err := h.chat.Connect(connID)
	if err != nil {
		return fmt.Errorf("connecting chat session: %w", err)
	}
	defer func() {
		if err := h.chat.Disconnect(connID); err != nil {
			logger.Warn("disconnecting chat session", zap.Error(err))
		}
	}()

	view := &clientView{}
	_ = conn.WriteLines(
		telnet.Colorize(telnet.BrightYellow, "Welcome to chatrooms."),
		telnet.Colorize(telnet.Dim, "Type /help for commands, /rooms to see open rooms."),
	)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.forward(conn, sess.Outbox, view, logger)
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-writerDone:
			// Outbox closed: the server dropped this session.
			_ = conn.Close()
		}
	}()

	err = h.commandLoop(conn, connID, view)
	if errors.Is(err, errQuit) {
		_ = conn.WriteLine(telnet.Colorize(telnet.Dim, "Goodbye."))
		return nil
	}
	return err
}

// forward renders every queued notification until the outbox is closed.
func (h *ChatHandler) forward(conn *telnet.Conn, outbox *session.Outbox, view *clientView, logger *zap.Logger) {
	for n := range outbox.Events() {
		if !view.observe(n) {
			continue
		}
		if err := conn.WriteLines(RenderNotification(n)...); err != nil {
			logger.Debug("writing notification", zap.String("kind", string(n.Kind)), zap.Error(err))
			return
		}
	}
}

func (h *ChatHandler) commandLoop(conn *telnet.Conn, connID string, view *clientView) error {
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		parsed := command.Parse(line)
		if !parsed.IsCommand() {
			if parsed.Message == "" {
				continue
			}
			if !view.isInRoom() {
				_ = conn.WriteLine(RenderError("You are not in a room. Use /rooms, /join or /create."))
				continue
			}
			if err := h.chat.RoomMsg(connID, parsed.Message); err != nil {
				return err
			}
			continue
		}

		cmd, ok := h.commands.Resolve(parsed.Command)
		if !ok {
			_ = conn.WriteLine(RenderError(fmt.Sprintf("Unknown command /%s. Type /help for a list.", parsed.Command)))
			continue
		}
		if err := h.dispatch(conn, connID, view, cmd, parsed); err != nil {
			return err
		}
	}
}

// dispatch runs one command. Validation failures have already been reported
// to the client, so only fatal errors propagate.
func (h *ChatHandler) dispatch(conn *telnet.Conn, connID string, view *clientView, cmd *command.Command, parsed command.ParseResult) error {
	var err error
	switch cmd.Handler {
	case command.HandlerNick:
		err = h.chat.SetNickName(connID, parsed.RawArgs)

	case command.HandlerCreate:
		password := ""
		if parsed.RawArgs != "" {
			_ = conn.WritePrompt("Password (leave blank for an open room): ")
			if password, err = conn.ReadPassword(); err != nil {
				return fmt.Errorf("reading room password: %w", err)
			}
		}
		err = h.chat.CreateRoom(connID, parsed.RawArgs, password)

	case command.HandlerJoin:
		if len(parsed.Args) != 1 {
			_ = conn.WriteLine(RenderError("Usage: /join <number|room-id>"))
			return nil
		}
		target, ok := view.resolve(parsed.Args[0])
		if !ok {
			_ = conn.WriteLine(RenderError(fmt.Sprintf("No room number %s. Use /rooms to refresh the list.", parsed.Args[0])))
			return nil
		}
		password := ""
		if target.IsLocked {
			_ = conn.WritePrompt(fmt.Sprintf("Password for %s: ", target.Title))
			if password, err = conn.ReadPassword(); err != nil {
				return fmt.Errorf("reading room password: %w", err)
			}
		}
		err = h.chat.JoinRoom(connID, target.ID, password)

	case command.HandlerLeave:
		err = h.chat.QuitRoom(connID)
		view.leave()

	case command.HandlerRooms:
		view.showNextList.Store(true)
		err = h.chat.RequestRoomList(connID)

	case command.HandlerHelp:
		return conn.WriteLines(RenderHelp(h.commands)...)

	case command.HandlerQuit:
		return errQuit
	}

	if errors.Is(err, chatserver.ErrUnknownSession) {
		return err
	}
	return nil
}

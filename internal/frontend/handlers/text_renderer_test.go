package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/chatrooms/internal/chat/command"
	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
	"github.com/cory-johannsen/chatrooms/internal/frontend/telnet"
)

func plain(lines []string) string {
	return telnet.StripANSI(strings.Join(lines, "\n"))
}

func TestRenderNotification(t *testing.T) {
	cases := []struct {
		n    notify.Notification
		want string
	}{
		{notify.SetNickDefault("Anonymous7"), "You are known as Anonymous7. Use /nick <name> to change it."},
		{notify.SetNickOK("alice"), "You are now known as alice."},
		{notify.SetNickErr("That display name is already in use."), "That display name is already in use."},
		{notify.RoomSysMsg("Welcome bob"), "* Welcome bob"},
		{notify.RoomMsg("bob", "hi there"), "bob: hi there"},
		{notify.RoomInfo("Lobby", 1), "[Lobby] 1 member"},
		{notify.RoomInfo("Lobby", 3), "[Lobby] 3 members"},
		{notify.CreateRoomOK(), "Room created."},
		{notify.CreateRoomErr("Room title must not be empty."), "Room title must not be empty."},
		{notify.SysMsg("Wrong password."), "Wrong password."},
	}
	for _, tc := range cases {
		t.Run(string(tc.n.Kind), func(t *testing.T) {
			assert.Equal(t, tc.want, plain(RenderNotification(tc.n)))
		})
	}
}

func TestRenderNotification_ErrorsAreRed(t *testing.T) {
	rendered := RenderNotification(notify.SysMsg("nope"))
	require.Len(t, rendered, 1)
	assert.True(t, strings.HasPrefix(rendered[0], telnet.Red))
}

func TestRenderRoomList(t *testing.T) {
	lines := RenderRoomList([]notify.RoomEntry{
		{ID: "a", Title: "Lobby", MemberCount: 2},
		{ID: "b", Title: "Vault", MemberCount: 1, IsLocked: true},
	})
	require.Len(t, lines, 3)
	assert.Equal(t, "Rooms:", telnet.StripANSI(lines[0]))
	assert.Equal(t, "   1. Lobby (2 members)", telnet.StripANSI(lines[1]))
	assert.Equal(t, "   2. Vault (1 member) (locked)", telnet.StripANSI(lines[2]))
}

func TestRenderRoomList_Empty(t *testing.T) {
	assert.Contains(t, plain(RenderRoomList(nil)), "No rooms yet")
	assert.Contains(t, plain(RenderNotification(notify.RoomList(nil))), "No rooms yet")
}

func TestRenderHelp(t *testing.T) {
	out := plain(RenderHelp(command.DefaultRegistry()))
	for _, want := range []string{"/nick <name>", "/create <title>", "/join <number|room-id> (/j)", "/leave (/part)", "/rooms (/list)", "/quit (/exit)"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "identity"), strings.Index(out, "rooms\n"), "categories are sorted")
}

func TestRenderError(t *testing.T) {
	assert.Equal(t, "oops", telnet.StripANSI(RenderError("oops")))
}

func TestPropertyRenderRoomMsgKeepsText(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sender := rapid.StringMatching(`[A-Za-z0-9]{1,20}`).Draw(t, "sender")
		text := rapid.StringMatching(`[ -~]{1,80}`).Draw(t, "text")
		got := plain(RenderNotification(notify.RoomMsg(sender, text)))
		assert.Equal(t, sender+": "+text, got)
	})
}

package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/cory-johannsen/chatrooms/internal/chat/command"
	"github.com/cory-johannsen/chatrooms/internal/chat/notify"
	"github.com/cory-johannsen/chatrooms/internal/frontend/telnet"
)

// RenderNotification formats a notification as coloured Telnet lines.
//
// Postcondition: Returns at least one line for every known Kind.
func RenderNotification(n notify.Notification) []string {
	switch n.Kind {
	case notify.KindSetNickDefault:
		return []string{telnet.Colorf(telnet.Cyan, "You are known as %s. Use /nick <name> to change it.", n.Name)}
	case notify.KindSetNickOK:
		return []string{telnet.Colorf(telnet.Green, "You are now known as %s.", n.Name)}
	case notify.KindRoomSysMsg:
		return []string{telnet.Colorize(telnet.Yellow, "* "+n.Text)}
	case notify.KindRoomMsg:
		return []string{telnet.Colorize(telnet.Bold+telnet.BrightCyan, n.Sender) + ": " + n.Text}
	case notify.KindRoomInfo:
		return []string{telnet.Colorf(telnet.Green, "[%s] %s", n.Title, memberLabel(n.MemberCount))}
	case notify.KindRoomList:
		return RenderRoomList(n.Rooms)
	case notify.KindCreateRoomOK:
		return []string{telnet.Colorize(telnet.Green, "Room created.")}
	case notify.KindSetNickErr, notify.KindCreateRoomErr, notify.KindSysMsg:
		return []string{telnet.Colorize(telnet.Red, n.Text)}
	default:
		return []string{fmt.Sprintf("%s %v", n.Kind, n.Arguments())}
	}
}

// RenderRoomList formats the room directory as a numbered list. The numbers
// are the indexes accepted by /join.
func RenderRoomList(rooms []notify.RoomEntry) []string {
	if len(rooms) == 0 {
		return []string{telnet.Colorize(telnet.Dim, "No rooms yet. Create one with /create <title>.")}
	}
	lines := lo.Map(rooms, func(r notify.RoomEntry, i int) string {
		lock := lo.Ternary(r.IsLocked, telnet.Colorize(telnet.Red, " (locked)"), "")
		return fmt.Sprintf("  %s%2d.%s %s%s%s %s%s",
			telnet.BrightBlack, i+1, telnet.Reset,
			telnet.BrightYellow, r.Title, telnet.Reset,
			telnet.Colorize(telnet.Dim, "("+memberLabel(r.MemberCount)+")"), lock)
	})
	return append([]string{telnet.Colorize(telnet.Cyan, "Rooms:")}, lines...)
}

// RenderHelp formats the command registry grouped by category.
func RenderHelp(reg *command.Registry) []string {
	byCategory := reg.CommandsByCategory()
	categories := lo.Keys(byCategory)
	sort.Strings(categories)

	lines := []string{telnet.Colorize(telnet.BrightYellow, "Commands:")}
	for _, cat := range categories {
		lines = append(lines, telnet.Colorize(telnet.Cyan, "  "+cat))
		for _, cmd := range byCategory[cat] {
			usage := "/" + cmd.Name
			if cmd.Usage != "" {
				usage += " " + cmd.Usage
			}
			if len(cmd.Aliases) > 0 {
				usage += telnet.Colorize(telnet.Dim, " (/"+strings.Join(cmd.Aliases, ", /")+")")
			}
			lines = append(lines, fmt.Sprintf("    %s  %s", usage, cmd.Help))
		}
	}
	lines = append(lines, telnet.Colorize(telnet.Dim, "Anything else you type is sent to your room."))
	return lines
}

// RenderError formats a local error line.
func RenderError(msg string) string {
	return telnet.Colorize(telnet.Red, msg)
}

func memberLabel(n int) string {
	if n == 1 {
		return "1 member"
	}
	return fmt.Sprintf("%d members", n)
}

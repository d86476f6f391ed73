package command

import "strings"

// Prefix marks a line as a command. A line starting with a doubled prefix is
// sent as a message with one prefix removed.
const Prefix = "/"

// ParseResult holds a parsed input line. Exactly one of Command or Message is
// set for non-empty input.
type ParseResult struct {
	// Command is the first word after the prefix, lowercased.
	Command string
	// Args are the remaining words after the command.
	Args []string
	// RawArgs is the raw text after the command.
	RawArgs string
	// Message is the chat text of a non-command line.
	Message string
}

// IsCommand reports whether the line named a command.
func (p ParseResult) IsCommand() bool {
	return p.Command != ""
}

// Parse splits a text line into a command and arguments, or a chat message.
//
// Postcondition: Returns a ParseResult. If line is blank, both Command and Message are empty.
func Parse(line string) ParseResult {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return ParseResult{}
	}

	if strings.HasPrefix(line, Prefix+Prefix) {
		return ParseResult{Message: line[len(Prefix):]}
	}
	if !strings.HasPrefix(line, Prefix) {
		return ParseResult{Message: line}
	}

	body := strings.TrimSpace(line[len(Prefix):])
	if body == "" {
		return ParseResult{}
	}

	spaceIdx := strings.IndexByte(body, ' ')
	if spaceIdx < 0 {
		return ParseResult{Command: strings.ToLower(body)}
	}

	rest := strings.TrimSpace(body[spaceIdx+1:])
	var args []string
	if rest != "" {
		args = strings.Fields(rest)
	}
	return ParseResult{
		Command: strings.ToLower(body[:spaceIdx]),
		Args:    args,
		RawArgs: rest,
	}
}

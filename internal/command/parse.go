package command

import "strings"

// Command is a parsed slash command.
type Command struct {
	Name string
	Args []string
	Raw  string
}

// Parse reports whether input is a slash command and splits it into a
// lowercased name and its arguments. A bare "/" parses with an empty name.
// Lines starting with "//" are escaped names, not commands.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	rest, ok := strings.CutPrefix(trimmed, "/")
	if !ok || strings.HasPrefix(rest, "/") {
		return Command{}, false
	}
	raw := strings.TrimSpace(rest)
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	return Command{
		Name: strings.ToLower(fields[0]),
		Args: fields[1:],
		Raw:  raw,
	}, true
}

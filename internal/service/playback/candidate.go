package playback

import (
	"errors"
	"fmt"
	"strings"
)

// FilePlaceholder marks where the sound path goes in a command template.
const FilePlaceholder = "{file}"

// errEmptyTemplate is returned for blank command templates.
var errEmptyTemplate = errors.New("empty player template")

// Candidate is one playback program and its arguments.
type Candidate struct {
	// Template is the configured command line.
	Template string
	// Program is the executable probed on the host.
	Program string
	// Args are the arguments, with FilePlaceholder where the path goes.
	Args []string
}

// ParseCandidate splits a template on whitespace. When the template has no
// placeholder, the path is appended as the last argument.
func ParseCandidate(template string) (Candidate, error) {
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return Candidate{}, errEmptyTemplate
	}

	args := fields[1:]

	hasPlaceholder := false

	for _, arg := range args {
		if strings.Contains(arg, FilePlaceholder) {
			hasPlaceholder = true
			break
		}
	}

	if !hasPlaceholder {
		args = append(args, FilePlaceholder)
	}

	return Candidate{
		Template: template,
		Program:  fields[0],
		Args:     args,
	}, nil
}

// ParseCandidates parses templates in order.
func ParseCandidates(templates []string) ([]Candidate, error) {
	candidates := make([]Candidate, 0, len(templates))

	for i, template := range templates {
		candidate, err := ParseCandidate(template)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i+1, err)
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// Command returns the argv for playing path with the given executable.
func (c Candidate) Command(executable, path string) []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, executable)

	for _, arg := range c.Args {
		argv = append(argv, strings.ReplaceAll(arg, FilePlaceholder, path))
	}

	return argv
}

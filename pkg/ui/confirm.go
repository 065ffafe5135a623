package ui

import (
	"fmt"
	"io"
	"strings"
)

// Confirm asks a yes/no question on w and reads the answer from r.
// An empty answer takes the default; anything other than y/yes/n/no
// is treated as no.
func Confirm(r io.Reader, w io.Writer, prompt string, defaultYes bool) (bool, error) {
	marker := "[y/N]"
	if defaultYes {
		marker = "[Y/n]"
	}
	fmt.Fprintf(w, "%s %s: ", prompt, marker)

	var answer string
	// Scanln fails on a bare Enter; that still means "use the default".
	if _, err := fmt.Fscanln(r, &answer); err != nil && err.Error() != "unexpected newline" && err != io.EOF {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" {
		return defaultYes, nil
	}
	return answer == "y" || answer == "yes", nil
}

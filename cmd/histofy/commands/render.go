package commands

import (
	"encoding/json"
	"fmt"
	"io"
)

// printJSON writes v as indented JSON, the machine-readable counterpart
// of the renderers in pkg/output.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printLine(w io.Writer, s string) error {
	_, err := fmt.Fprintln(w, s)
	return err
}

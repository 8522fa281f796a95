// Package display renders command results for terminals and scripts.
package display

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/citykit/errors"
)

// OutputEnv forces JSON results for every command when set to "json".
const OutputEnv = "CITYKIT_OUTPUT"

// ShouldOutputJSON determines if a command should output JSON based on its
// --json flag, falling back to CITYKIT_OUTPUT.
func ShouldOutputJSON(cmd *cobra.Command) bool {
	if cmd != nil && cmd.Flags().Lookup("json") != nil && cmd.Flags().Changed("json") {
		jsonFlag, _ := cmd.Flags().GetBool("json")
		return jsonFlag
	}
	return os.Getenv(OutputEnv) == "json"
}

// AddJSONFlag registers the --json flag read by ShouldOutputJSON.
func AddJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false, "Output as JSON")
}

// OutputJSON marshals v with MarshalJSON and prints it to stdout.
func OutputJSON(v interface{}) error {
	return WriteJSON(os.Stdout, v)
}

// WriteJSON is OutputJSON to w.
func WriteJSON(w io.Writer, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

package ghaction

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Commands writes workflow commands and step outputs.
type Commands struct {
	w          io.Writer
	outputFile string
}

// NewCommands returns a Commands that writes workflow commands to w.
// Step outputs are appended to the file referenced by the GITHUB_OUTPUT
// environment variable.
func NewCommands(w io.Writer, getenv func(string) string) *Commands {
	return &Commands{
		w:          w,
		outputFile: getenv(EnvOutput),
	}
}

// Error writes an error message that GitHub shows as annotation of the
// workflow run.
func (c *Commands) Error(msg string) {
	fmt.Fprintf(c.w, "::error::%s\n", escapeData(msg))
}

// SetOutput sets the step output name to value.
// If GITHUB_OUTPUT is not set, e.g. because the binary is not run by GitHub
// Actions, nothing is done.
func (c *Commands) SetOutput(name, value string) error {
	if c.outputFile == "" {
		return nil
	}

	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("output value of %q contains a newline", name)
	}

	f, err := os.OpenFile(c.outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening output file failed: %w", err)
	}

	_, err = fmt.Fprintf(f, "%s=%s\n", name, value)
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("writing to output file failed: %w", err)
	}

	return f.Close()
}

func escapeData(s string) string {
	return strings.NewReplacer(
		"%", "%25",
		"\r", "%0D",
		"\n", "%0A",
	).Replace(s)
}

package utils

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"codebundle/constants/lipgloss"
)

// ReadCommand prompts for a single-line command and returns it trimmed.
// End-of-stream is treated as a quit request.
func ReadCommand(reader *bufio.Reader, out io.Writer) string {
	fmt.Fprint(out, lipgloss.Bold.Render("> "))

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "q"
	}
	return strings.TrimSpace(line)
}

// ReadCommandWithContext reads a command with cancellation support: an
// interrupt arriving while the prompt is idle wins over the read.
func ReadCommandWithContext(ctx context.Context, reader *bufio.Reader, out io.Writer) (string, error) {
	inputChan := make(chan string, 1)

	go func() {
		inputChan <- ReadCommand(reader, out)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(out)
		return "", ctx.Err()
	case input := <-inputChan:
		return input, nil
	}
}

// AskYesNo prompts with a yes/no question. Only an explicit "y"/"yes"
// answers true; anything else, including end-of-stream, answers false.
func AskYesNo(prompt string, reader *bufio.Reader, out io.Writer) bool {
	fmt.Fprint(out, prompt)

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

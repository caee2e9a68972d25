package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"cvelib/internal/config"
)

// confirm asks before a mutating request when interactive mode is on. Any
// answer other than y or yes aborts.
func confirm(cmd *cobra.Command, action string) error {
	if !settings.Interactive {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Are you sure you want to %s? [y/N]: ", action)
	answer, err := readLine(cmd)
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return ErrAborted
	}
}

// readPassphrase returns CVE_PASSPHRASE when set, otherwise prompts on
// stderr. Input is hidden when stdin is a terminal.
func readPassphrase(cmd *cobra.Command, prompt string) (string, error) {
	if v, ok := os.LookupEnv(config.EnvPassphrase); ok {
		return v, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(f.Fd()) {
		b, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(cmd.ErrOrStderr())
		return string(b), err
	}
	return readLine(cmd)
}

// input buffers stdin across prompts within one run.
var input *bufio.Reader

func readLine(cmd *cobra.Command) (string, error) {
	if input == nil {
		input = bufio.NewReader(cmd.InOrStdin())
	}
	line, err := input.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

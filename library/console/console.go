// Package console holds the terminal helpers shared by the library-portal
// commands.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ReadPassword reads a password with masking when in is a terminal and
// falls back to the next line of sc otherwise.
func ReadPassword(in io.Reader, sc *bufio.Scanner, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		fmt.Fprintln(w) // Add newline after password input
		return strings.TrimSpace(string(bytePassword)), nil
	}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(sc.Text()), nil
}

// Truncate shortens s to maxLen bytes, ending in "..." when there is room.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/RubyWolff27/rivaflow-wearsync/internal/whoop"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// wearsyncIsUnavailable reports whether err is the uniform vendor failure.
func wearsyncIsUnavailable(err error) bool {
	return errors.Is(err, whoop.ErrServiceUnavailable)
}

// stdoutIsTTY reports whether stdout is an interactive terminal.
// Tables get padded columns on a TTY and tab separators when piped.
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printTable writes rows to w: aligned columns for terminals, TSV when
// piped. headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if !stdoutIsTTY() {
		fmt.Fprintln(w, strings.Join(headers, "\t"))

		for _, row := range rows {
			fmt.Fprintln(w, strings.Join(row, "\t"))
		}

		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes one padded table row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

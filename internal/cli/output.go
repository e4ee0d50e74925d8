package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
	info   = color.New(color.FgCyan)
	bad    = color.New(color.FgRed)
)

// printTable writes an aligned table. The first column is highlighted.
func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	headerLine := "  "
	sepLine := "  "
	for i, h := range headers {
		headerLine += fmt.Sprintf("%-*s  ", widths[i], h)
		sepLine += strings.Repeat("─", widths[i]) + "  "
	}
	subtle.Fprintln(w, strings.TrimRight(headerLine, " "))
	subtle.Fprintln(w, strings.TrimRight(sepLine, " "))

	for _, row := range rows {
		fmt.Fprint(w, "  ")
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			padded := fmt.Sprintf("%-*s", widths[i], cell)
			if i == len(row)-1 {
				padded = cell
			}
			if i == 0 {
				brand.Fprint(w, padded)
			} else {
				fmt.Fprint(w, padded)
			}
			if i < len(row)-1 {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}

package diff

import (
	"bufio"
	"fmt"
	"io"
)

// WriteText renders the result as plain text for terminals and logs.
func (r Result) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Added services (%d)\n", len(r.Added))
	if len(r.Added) == 0 {
		fmt.Fprintln(bw, "  none")
	}
	for _, svc := range r.Added {
		fmt.Fprintf(bw, "  + %s\n", svc.Key())
	}

	fmt.Fprintf(bw, "Removed services (%d)\n", len(r.Removed))
	if len(r.Removed) == 0 {
		fmt.Fprintln(bw, "  none")
	}
	for _, svc := range r.Removed {
		fmt.Fprintf(bw, "  - %s\n", svc.Key())
	}

	fmt.Fprintf(bw, "Modified services (%d)\n", len(r.Modified))
	if len(r.Modified) == 0 {
		fmt.Fprintln(bw, "  none")
	}
	for _, mod := range r.Modified {
		fmt.Fprintf(bw, "  ~ %s\n", mod.Key())
		for _, field := range mod.Fields() {
			change := mod.Changes[field]
			fmt.Fprintf(bw, "      %s: %s -> %s\n", field, change.Before, change.After)
		}
	}

	return bw.Flush()
}

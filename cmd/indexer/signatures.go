package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"loanScope/internal/neurolend"
)

func runSignatures(cmd *cobra.Command, _ []string) error {
	table, err := neurolend.NewSignatureTable()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, sig := range table.Signatures() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", sig.Name, sig.Topic0.Hex(), sig.Canonical)
	}
	return w.Flush()
}

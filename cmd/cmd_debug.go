// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/address"
)

// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugAdressesCmd = &cobra.Command{
	Use:   "adresses",
	Short: "Interagir avec le module de canonicalisation d'adresses",
	Long: `Lit une adresse par ligne et imprime sur stdout l'adresse suivie de sa clé
canonique.

$ echo "12 Rue de Rivoli, 75001 Paris" | lexpar debug adresses
12 Rue de Rivoli, 75001 Paris		12 rue de rivoli
	`,
	Run: func(_ *cobra.Command, _ []string) {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Entrez les adresses à analyser, une par ligne…")
		}
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()
			key := address.CanonicalKey(line)
			if key == "" {
				fmt.Printf("%s\t\t<aucune clé>\n", line)
			} else {
				fmt.Printf("%s\t\t%s\n", line, key)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugAdressesCmd)
	debugCmd.AddCommand(debugDocumentCmd)
}

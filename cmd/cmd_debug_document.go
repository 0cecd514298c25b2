// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/bovp"
	"github.com/lexpar/lexpar/doctext"
)

var debugDocumentCmd = &cobra.Command{
	Use:   "document [file]",
	Short: "Lit un arrêté PDF ou HTML et imprime les champs extraits en JSON.",
	Long: `Lit un document d'arrêté depuis un fichier ou depuis l'entrée standard,
en extrait le texte puis les champs structurés, et les imprime en JSON.

Exemples:
  cat ./pdfs/45678.pdf | go run main.go debug document
  go run main.go debug document ./pdfs/45678.pdf`,
	Run: func(_ *cobra.Command, args []string) {
		var (
			r   io.Reader
			err error
		)

		if len(args) > 0 {
			r, err = os.Open(args[0])
			if err != nil {
				log.Fatalf("error opening file: %v", err)
			}
		} else {
			r = os.Stdin
			if isTerminal(os.Stdin) {
				fmt.Fprintln(os.Stderr, "Reading from stdin. Paste the document and press Ctrl+D to finish.")
			}
		}

		data, err := io.ReadAll(r)
		if err != nil {
			log.Fatalf("error reading document: %v", err)
		}

		text, err := doctext.FromBytes(data)
		if err != nil {
			log.Fatalf("error extracting text: %v", err)
		}

		extraction := bovp.Extract(text)

		output, err := json.MarshalIndent(extraction, "", "  ")
		if err != nil {
			log.Fatalf("error marshalling json: %v", err)
		}

		fmt.Println(string(output))
	},
}

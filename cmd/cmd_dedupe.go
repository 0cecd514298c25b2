// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/dedupe"
)

var dedupeDryRun bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe <fichier>",
	Short: "Déduplique un jeu de données d'arrêtés",
	Long: `Regroupe les arrêtés par adresse canonique et par type, et ne conserve que
le plus récent de chaque groupe. Les arrêtés sans adresse exploitable ne sont
jamais fusionnés.`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		path := args[0]

		records, wrapped, err := dataset.Load(path)
		if err != nil {
			return err
		}

		result := dedupe.Dedupe(records)

		log.Printf("Dedupe - %d records in, %d kept, %d removed",
			len(records), len(result.Kept), result.Removed)

		if dedupeDryRun {
			return nil
		}

		return dataset.Save(path, result.Kept, wrapped)
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
	dedupeCmd.PersistentFlags().BoolVar(
		&dedupeDryRun,
		"dry-run",
		false,
		"Ne persiste aucun changement",
	)
}

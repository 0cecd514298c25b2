// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/parisdata"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Conversion des exports tabulaires de Paris Data",
}

var dataListCmd = &cobra.Command{
	Use:   "list",
	Short: "Liste les jeux de données connus",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b, c := strings.Repeat("─", 14), strings.Repeat("─", 26), strings.Repeat("─", 10)
		fmt.Println("Jeux de données connus :")
		fmt.Printf("╭─%-14s─┬─%-26s─┬─%-10s╮\n", a, b, c)
		fmt.Printf("│ %-14s │ %-26s │ %-10s│\n", "Type", "Source", "Géométrie")
		fmt.Printf("├─%-14s─┼─%-26s─┼─%-10s┤\n", a, b, c)
		err := parisdata.Each(func(d parisdata.Descriptor) error {
			geoReq := "optionnelle"
			if d.RequireGeo {
				geoReq = "requise"
			}

			fmt.Printf("│ %-14s │ %-26s │ %-10s│\n", d.Type, d.Name, geoReq)

			return nil
		})
		fmt.Printf("╰─%-14s─┴─%-26s─┴─%-10s╯\n", a, b, c)

		return err
	},
}

var (
	dataInput   string
	dataOutput  string
	dataDataDir string
)

var dataConvertCmd = &cobra.Command{
	Use:   "convert <jeu>",
	Short: "Convertit un export CSV vers le format canonique",
	Long: `Convertit un export CSV du portail Paris Data vers le format canonique de la
carte. L'export est régénéré en entier à chaque passage ; la sortie remplace le
fichier précédent.

Exemples:
  lexpar data convert terrasses --input terrasses-autorisations.csv
  cat chantiers-a-paris.csv | lexpar data convert travaux --output data/travaux.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		desc, err := parisdata.Find(args[0])
		if err != nil {
			return err
		}

		var r io.Reader = os.Stdin

		if dataInput != "" {
			f, err := os.Open(filepath.Clean(dataInput))
			if err != nil {
				return fmt.Errorf("opening input: %w", err)
			}
			defer f.Close()

			r = f
		}

		records, metrics, err := parisdata.Convert(r, desc)
		if err != nil {
			return err
		}

		log.Printf(
			"Convert %s - %d rows read, %d converted, %d without usable geometry",
			desc.Name,
			metrics.RowsRead,
			metrics.Converted,
			metrics.NoGeo,
		)

		output := dataOutput
		if output == "" {
			output = filepath.Join(dataDataDir, string(desc.Type)+".json")
		}

		return dataset.Save(output, records, false)
	},
}

var dataFusionCmd = &cobra.Command{
	Use:   "fusion",
	Short: "Assemble tous les jeux de données en un seul fichier",
	Long: `Assemble les jeux de données convertis et le jeu des arrêtés en un seul
fichier pour la carte. Les fichiers sources restent inchangés.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		files, err := filepath.Glob(filepath.Join(dataDataDir, "*.json"))
		if err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}

		output := dataOutput
		if output == "" {
			output = filepath.Join(dataDataDir, "fusion.json")
		}

		var all []dataset.Record

		for _, file := range files {
			if filepath.Base(file) == filepath.Base(output) {
				continue
			}

			records, _, err := dataset.Load(file)
			if err != nil {
				return err
			}

			all = append(all, records...)
		}

		log.Printf("Fusion - %d records from %d files", len(all), len(files))

		return dataset.Save(output, all, true)
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(dataListCmd)
	dataCmd.AddCommand(dataConvertCmd)
	dataCmd.AddCommand(dataFusionCmd)
	dataCmd.PersistentFlags().StringVar(
		&dataDataDir,
		"data-dir",
		"data",
		"Répertoire des jeux de données",
	)
	dataConvertCmd.PersistentFlags().StringVar(
		&dataInput,
		"input",
		"",
		"Fichier CSV source ; l'entrée standard par défaut",
	)
	dataConvertCmd.PersistentFlags().StringVar(
		&dataOutput,
		"output",
		"",
		"Fichier de sortie ; <data-dir>/<type>.json par défaut",
	)
	dataFusionCmd.PersistentFlags().StringVar(
		&dataOutput,
		"output",
		"",
		"Fichier de sortie ; <data-dir>/fusion.json par défaut",
	)
}

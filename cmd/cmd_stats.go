// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"
)

var statsDataDir string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Statistiques sur les jeux de données",
	Long: `Agrège les jeux de données JSON du répertoire de données : volume par type
et couverture géographique.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		files, err := filepath.Glob(filepath.Join(statsDataDir, "*.json"))
		if err != nil {
			return fmt.Errorf("listing datasets: %w", err)
		}

		if len(files) == 0 {
			return fmt.Errorf("no dataset files in %s", statsDataDir)
		}

		db, err := sql.Open("duckdb", "")
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		for _, file := range files {
			if err := reportDataset(db, file); err != nil {
				return fmt.Errorf("reporting %s: %w", filepath.Base(file), err)
			}
		}

		return nil
	},
}

// datasetSource builds the FROM clause for a dataset file. The decree file
// wraps its records in a {"data": []} envelope, the converted exports are
// bare arrays; both need to end up as one row per record.
func datasetSource(file string) (string, error) {
	head := make([]byte, 64)

	f, err := os.Open(filepath.Clean(file))
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := f.Read(head)
	if err != nil {
		return "", err
	}

	escaped := strings.ReplaceAll(file, "'", "''")

	if bytes.HasPrefix(bytes.TrimSpace(head[:n]), []byte("{")) {
		return fmt.Sprintf(
			"(SELECT unnest(data, recursive := true) FROM read_json_auto('%s'))",
			escaped,
		), nil
	}

	return fmt.Sprintf("read_json_auto('%s')", escaped), nil
}

func reportDataset(db *sql.DB, file string) error {
	source, err := datasetSource(file)
	if err != nil {
		return err
	}

	rows, err := db.Query(fmt.Sprintf(
		`SELECT coalesce(type, '?') AS type,
		        count(*)            AS total,
		        count(geo)          AS located
		 FROM %s
		 GROUP BY type
		 ORDER BY total DESC`,
		source,
	))
	if err != nil {
		return err
	}
	defer rows.Close()

	a, b := strings.Repeat("─", 14), strings.Repeat("─", 8)
	fmt.Printf("%s :\n", filepath.Base(file))
	fmt.Printf("╭─%-14s─┬─%-8s─┬─%-8s─╮\n", a, b, b)
	fmt.Printf("│ %-14s │ %8s │ %8s │\n", "Type", "Total", "Géo")
	fmt.Printf("├─%-14s─┼─%-8s─┼─%-8s─┤\n", a, b, b)

	for rows.Next() {
		var recordType string
		var total, located int

		if err := rows.Scan(&recordType, &total, &located); err != nil {
			return err
		}

		fmt.Printf("│ %-14s │ %8d │ %8d │\n", recordType, total, located)
	}

	fmt.Printf("╰─%-14s─┴─%-8s─┴─%-8s─╯\n", a, b, b)

	return rows.Err()
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.PersistentFlags().StringVar(
		&statsDataDir,
		"data-dir",
		"data",
		"Répertoire des jeux de données",
	)
}

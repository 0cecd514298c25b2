// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/serve"
)

var serveServer = &serve.Server{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Sert les jeux de données et l'application carte",
	Long: `Sert les jeux de données en JSON pour la carte, avec une recherche de
proximité par cellule H3 et la mise à jour du commentaire d'un arrêté. Les
métriques Prometheus sont exposées sous /metrics.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return serveServer.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.PersistentFlags().StringVar(
		&serveServer.Addr,
		"addr",
		"localhost:8000",
		"Adresse d'écoute",
	)
	serveCmd.PersistentFlags().StringVar(
		&serveServer.DataDir,
		"data-dir",
		"data",
		"Répertoire des jeux de données",
	)
	serveCmd.PersistentFlags().StringVar(
		&serveServer.StaticDir,
		"static-dir",
		"",
		"Répertoire des fichiers statiques de la carte, servi sous /app",
	)
}

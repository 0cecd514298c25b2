// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lexpar/lexpar/bovp"
)

var bovpCmd = &cobra.Command{
	Use:   "bovp",
	Short: "Ingestion des arrêtés du Bulletin Officiel de la Ville de Paris",
}

var bovpOptions = &bovp.ClientOptions{}

var bovpUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Récupère et extrait les nouveaux arrêtés",
	Long: `Parcourt les identifiants numériques du bulletin à partir du dernier arrêté
connu, télécharge les documents manquants, en extrait les champs et fusionne
les arrêtés retenus dans le jeu de données.

Sans --start-id, la reprise se fait après le plus grand identifiant déjà
présent dans le jeu de données.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		bovpOptions.UserAgent = fmt.Sprintf("lexpar/%s (+https://github.com/lexpar/lexpar)", Version)

		c := bovp.NewClient(bovpOptions, nil)

		return c.Update(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(bovpCmd)
	bovpCmd.AddCommand(bovpUpdateCmd)
	bovpCmd.PersistentFlags().StringVar(
		&bovpOptions.CachePath,
		"cache-path",
		"pdfs",
		"Répertoire où conserver les documents téléchargés",
	)
	bovpCmd.PersistentFlags().StringVar(
		&bovpOptions.DatasetPath,
		"dataset",
		"data/arretes.json",
		"Fichier du jeu de données des arrêtés",
	)
	bovpUpdateCmd.PersistentFlags().IntVar(
		&bovpOptions.StartID,
		"start-id",
		0,
		"Premier identifiant à parcourir ; 0 reprend après le dernier connu",
	)
	bovpUpdateCmd.PersistentFlags().IntVar(
		&bovpOptions.EndID,
		"end-id",
		0,
		"Dernier identifiant à parcourir ; 0 laisse le parcours ouvert",
	)
	bovpUpdateCmd.PersistentFlags().IntVar(
		&bovpOptions.MaxDownloads,
		"max-downloads",
		bovp.DefaultMaxDownloads,
		"Nombre maximal de téléchargements par exécution",
	)
	bovpUpdateCmd.PersistentFlags().IntVar(
		&bovpOptions.MaxConsecutiveMisses,
		"max-misses",
		bovp.DefaultMaxConsecutiveMisses,
		"Identifiants absents consécutifs avant d'arrêter le parcours",
	)
	bovpUpdateCmd.PersistentFlags().IntVar(
		&bovpOptions.Year,
		"year",
		0,
		"Année de traitement pour la règle de rétention ; 0 utilise l'année courante",
	)
	bovpUpdateCmd.PersistentFlags().BoolVar(
		&bovpOptions.SkipFetch,
		"skip-fetch",
		false,
		"Évite tout téléchargement, extrait uniquement depuis le cache local",
	)
	bovpUpdateCmd.PersistentFlags().BoolVar(
		&bovpOptions.DryRun,
		"dry-run",
		false,
		"Ne persiste aucun changement",
	)
	bovpUpdateCmd.PersistentFlags().BoolVar(
		&bovpOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	bovpUpdateCmd.PersistentFlags().BoolVar(
		&bovpOptions.EnableHTTPBodyTrace,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}

// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package parisdata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lexpar/lexpar/dataset"
)

var errDescriptorNotFound = errors.New("dataset descriptor not found")

// Attribute maps one attribute key of the canonical record to the column
// aliases that may hold it, in priority order.
type Attribute struct {
	Key     string
	Aliases []string
}

// Descriptor describes one tabular source: its record type, how to derive
// the display fields, and the attribute schema carried over verbatim.
type Descriptor struct {
	Type       dataset.Type
	Name       string // canonical source file stem, e.g. "terrasses-autorisations"
	Title      []string
	Address    []string
	District   []string
	SourceID   []string
	Attributes []Attribute

	// RequireGeo drops rows without a derivable position instead of keeping
	// them with a null geo. The terrace and roadwork maps are position-only
	// views, matching the historical exports.
	RequireGeo bool
}

const fallbackTitle = "Sans titre"

// The known Paris Data exports. Aliases accumulate as new vintages rename
// columns; never remove an old alias.
var descriptors = []Descriptor{
	{
		Type:     dataset.TypeTerrace,
		Name:     "terrasses-autorisations",
		Title:    []string{"Nom de l'enseigne", "Titre", "Typologie"},
		Address:  []string{"Numéro et voie", "Adresse"},
		District: []string{"Arrondissement", "Code postal arrondissement - Commune", "Code postal"},
		Attributes: []Attribute{
			{Key: "Typologie", Aliases: []string{"Typologie"}},
			{Key: "Numéro et voie", Aliases: []string{"Numéro et voie"}},
			{Key: "Arrondissement", Aliases: []string{"Arrondissement"}},
			{Key: "Nom de l'enseigne", Aliases: []string{"Nom de l'enseigne"}},
			{Key: "Nom de la société", Aliases: []string{"Nom de la société"}},
			{Key: "SIRET", Aliases: []string{"SIRET"}},
			{Key: "Longueur", Aliases: []string{"Longueur"}},
			{Key: "Largeur", Aliases: []string{"Largeur"}},
			{Key: "Période d'installation", Aliases: []string{"Période d'installation"}},
			{Key: "Lien affichette", Aliases: []string{"Lien affichette"}},
		},
		RequireGeo: true,
	},
	{
		Type:     dataset.TypeRoadwork,
		Name:     "chantiers-a-paris",
		Title:    []string{"Synthèse - Nature du chantier", "Synthèse", "Typologie"},
		Address:  []string{"Adresse", "Voie", "Voie(s)"},
		District: []string{"Arrondissement", "Code postal", "Code postal de l'arrondissement"},
		SourceID: []string{"Identifiant Chantier CITE", "Identifiant Chantier"},
		Attributes: []Attribute{
			{Key: "Référence Chantier", Aliases: []string{"Référence Chantier", "Référence"}},
			{Key: "Synthèse - Nature du chantier", Aliases: []string{"Synthèse - Nature du chantier", "Synthèse"}},
			{Key: "Date début du chantier", Aliases: []string{"Date début du chantier", "Date de début"}},
			{Key: "Date fin du chantier", Aliases: []string{"Date fin du chantier", "Date de fin"}},
			{Key: "Maîtrise d'ouvrage principale", Aliases: []string{"Maîtrise d'ouvrage principale", "Maître d'ouvrage"}},
			{Key: "Responsable du chantier", Aliases: []string{"Responsable du chantier", "Responsable"}},
			{Key: "Encombrement espace public", Aliases: []string{"Encombrement espace public", "Encombrement"}},
			{Key: "Impact stationnement", Aliases: []string{"Impact stationnement"}},
			{Key: "Surface (m2)", Aliases: []string{"Surface (m2)", "Surface"}},
			{Key: "Identifiant demande CITE", Aliases: []string{"Identifiant demande CITE", "Identifiant demande"}},
			{Key: "Identifiant Chantier CITE", Aliases: []string{"Identifiant Chantier CITE", "Identifiant Chantier"}},
		},
		RequireGeo: true,
	},
	{
		Type:     dataset.TypeDisruption,
		Name:     "chantiers-perturbants",
		Title:    []string{"Objet", "Typologie"},
		Address:  []string{"Voie(s)"},
		District: []string{"Code postal de l'arrondissement"},
		SourceID: []string{"Identifiant"},
		Attributes: []Attribute{
			{Key: "Identifiant", Aliases: []string{"Identifiant"}},
			{Key: "Identifiant CTV", Aliases: []string{"Identifiant CTV"}},
			{Key: "Code postal de l'arrondissement", Aliases: []string{"Code postal de l'arrondissement"}},
			{Key: "Numéro de STV", Aliases: []string{"Numéro de STV"}},
			{Key: "Typologie", Aliases: []string{"Typologie"}},
			{Key: "Maitre d'ouvrage", Aliases: []string{"Maitre d'ouvrage", "Maîtrise d'ouvrage principale"}},
			{Key: "Objet", Aliases: []string{"Objet"}},
			{Key: "Description", Aliases: []string{"Description"}},
			{Key: "Voie(s)", Aliases: []string{"Voie(s)"}},
			{Key: "Précisions de localisation", Aliases: []string{"Précisions de localisation"}},
			{Key: "Date de début", Aliases: []string{"Date de début"}},
			{Key: "Date de fin", Aliases: []string{"Date de fin"}},
			{Key: "Impact sur la circulation", Aliases: []string{"Impact sur la circulation"}},
			{Key: "Détail de l'impact sur la circulation", Aliases: []string{"Détail de l'impact sur la circulation"}},
			{Key: "Niveau de perturbation", Aliases: []string{"Niveau de perturbation"}},
			{Key: "Statut", Aliases: []string{"Statut"}},
			{Key: "URL LettreInfoChantier", Aliases: []string{"URL LettreInfoChantier"}},
		},
		RequireGeo: true,
	},
}

// Find locates a descriptor by source name or record type, case-insensitive
// prefix match, mirroring how databases are looked up on the command line.
func Find(q string) (*Descriptor, error) {
	if q == "" {
		return nil, errors.New("empty descriptor query")
	}

	var found *Descriptor

	for i := range descriptors {
		d := &descriptors[i]
		if strings.EqualFold(q, string(d.Type)) ||
			(len(d.Name) >= len(q) && strings.EqualFold(d.Name[:len(q)], q)) {
			if found != nil {
				return nil, fmt.Errorf("ambiguous descriptor %q: %q, %q", q, found.Name, d.Name)
			}

			dCopy := *d
			found = &dCopy
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errDescriptorNotFound, q)
	}

	return found, nil
}

// Each applies the callback to every descriptor, stopping on error.
func Each(callback func(Descriptor) error) error {
	for i := range descriptors {
		if err := callback(descriptors[i]); err != nil {
			return err
		}
	}

	return nil
}

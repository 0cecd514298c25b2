// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package bovp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexpar/lexpar/dataset"
)

const sampleDecree = `
Préfecture de Police

Arrêté n° 2025 P 12345 modifiant les conditions de stationnement
rue de Rivoli, à Paris 1er.

Le Préfet de Police,

Arrête :

Article 1er
Le stationnement est interdit à tous les véhicules au droit du n°12
rue de Rivoli, 75001 Paris, sur 3 places.

Article 2
Les dispositions du présent arrêté s'appliquent jusqu'à la fin des travaux.

Fait à Paris, le 02 janvier 2025
`

func TestExtract(t *testing.T) {
	e := Extract(sampleDecree)

	require.Equal(t, "2025 P 12345", e.Numero)
	require.Equal(t, IssuerPolice, e.Issuer)
	require.Equal(t, dataset.TypeParking, e.Category)
	require.Equal(t, "02 janvier 2025", e.Date)

	require.True(t, strings.HasPrefix(e.Clause, "Article 1"), "clause: %q", e.Clause)
	require.Contains(t, e.Clause, "au droit du n°12")
	require.NotContains(t, e.Clause, "Article 2")

	require.Contains(t, e.Address, "rue de Rivoli")
}

func TestExtractNumero(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "spaced",
			input: "vu l'arrêté 2025 P 12345 du préfet",
			want:  "2025 P 12345",
		},
		{
			name:  "compact",
			input: "arrêté n°2025P12345",
			want:  "2025P12345",
		},
		{
			name:  "newline between parts",
			input: "arrêté 2025 P\n12345",
			want:  "2025 P 12345",
		},
		{
			name:  "absent",
			input: "aucun numéro ici",
			want:  "",
		},
		{
			name:  "bare year is not a numero",
			input: "en 2025, la rue est fermée",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractNumero(tt.input); got != tt.want {
				t.Errorf("extractNumero(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractIssuer(t *testing.T) {
	require.Equal(t, IssuerPolice, extractIssuer("la Préfecture de Police décide"))
	require.Equal(t, IssuerPolice, extractIssuer("LA PREFECTURE DE POLICE"))
	require.Equal(t, IssuerCity, extractIssuer("la Maire de la Ville de Paris"))
	require.Equal(t, IssuerUnknown, extractIssuer("document quelconque"))
}

func TestExtractCategory(t *testing.T) {
	require.Equal(t, dataset.TypeParking, extractCategory("le stationnement est interdit"))
	require.Equal(t, dataset.TypeTraffic, extractCategory("la circulation est modifiée"))
	// parking wins when both appear, matching the historical rule order
	require.Equal(t, dataset.TypeParking, extractCategory("stationnement et circulation"))
	require.Equal(t, dataset.TypeOther, extractCategory("occupation du domaine public"))
}

func TestExtractClause(t *testing.T) {
	t.Run("bounded by next article", func(t *testing.T) {
		clause := extractClause("Article 1 premier texte\nArticle 2 second texte")
		require.Equal(t, "Article 1 premier texte", clause)
	})

	t.Run("runs to the end without a next article", func(t *testing.T) {
		clause := extractClause("préambule Article 1 tout le reste")
		require.Equal(t, "Article 1 tout le reste", clause)
	})

	t.Run("no first article", func(t *testing.T) {
		require.Equal(t, "", extractClause("Article 2 seulement"))
	})

	t.Run("bounded length", func(t *testing.T) {
		clause := extractClause("Article 1 " + strings.Repeat("très long texte ", 100))
		require.LessOrEqual(t, len([]rune(clause)), 500)
	})
}

func TestRetain(t *testing.T) {
	tests := []struct {
		name string
		e    Extraction
		want bool
	}{
		{
			name: "parking current year",
			e:    Extraction{Numero: "2025 P 12345", Category: dataset.TypeParking},
			want: true,
		},
		{
			name: "traffic current year",
			e:    Extraction{Numero: "2025 C 4", Category: dataset.TypeTraffic},
			want: true,
		},
		{
			name: "previous year",
			e:    Extraction{Numero: "2024 P 12345", Category: dataset.TypeParking},
			want: false,
		},
		{
			name: "other category",
			e:    Extraction{Numero: "2025 T 1", Category: dataset.TypeOther},
			want: false,
		},
		{
			name: "no numero",
			e:    Extraction{Category: dataset.TypeParking},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.e.Retain(2025); got != tt.want {
				t.Errorf("Retain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord(t *testing.T) {
	e := Extract(sampleDecree)
	r := e.Record(4848, "https://example.org/doc?id=4848", "pdfs/4848.pdf")

	require.Equal(t, dataset.TypeParking, r.Type)
	require.Equal(t, "Arrêté 2025 P 12345", r.Title)
	require.Equal(t, "4848", r.SourceID)
	require.Nil(t, r.Geo)
	require.Equal(t, "2025 P 12345", r.Info[dataset.InfoNumero])
	require.Equal(t, IssuerPolice, r.Info[dataset.InfoIssuer])
	require.Equal(t, "02 janvier 2025", r.Info[dataset.InfoDate])
	require.Equal(t, "https://example.org/doc?id=4848", r.Info[dataset.InfoPdfURL])
	require.Equal(t, "pdfs/4848.pdf", r.Info[dataset.InfoPdfLocal])
}

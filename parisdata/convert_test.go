// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package parisdata

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/lexpar/lexpar/dataset"
	"github.com/lexpar/lexpar/geo"
)

func TestExtractGeo(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		values []string
		want   *geo.Point
	}{
		{
			name:   "geo_point_2d wins",
			header: []string{"geo_point_2d", "Latitude", "Longitude"},
			values: []string{"48.85, 2.35", "10", "10"},
			want:   &geo.Point{Lat: 48.85, Lon: 2.35},
		},
		{
			name:   "geo_shape fallback",
			header: []string{"geo_point_2d", "geo_shape"},
			values: []string{"", `{"type":"Polygon","coordinates":[[[2,48],[2.2,48],[2.2,48.2],[2,48.2]]]}`},
			want:   &geo.Point{Lat: 48.1, Lon: 2.1},
		},
		{
			name:   "loose lat lon columns",
			header: []string{"Latitude", "Longitude"},
			values: []string{"48.85", "2.35"},
			want:   &geo.Point{Lat: 48.85, Lon: 2.35},
		},
		{
			name:   "zero coordinates rejected",
			header: []string{"lat", "lon"},
			values: []string{"0", "2.35"},
			want:   nil,
		},
		{
			name:   "malformed point then nothing",
			header: []string{"geo_point_2d"},
			values: []string{"not a point"},
			want:   nil,
		},
		{
			name:   "nothing at all",
			header: []string{"Adresse"},
			values: []string{"1 rue de Rivoli"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractGeo(NewSourceRow(tt.header, tt.values))

			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}

				return
			}

			require.NotNil(t, got)
			require.InDelta(t, tt.want.Lat, got.Lat, 1e-9)
			require.InDelta(t, tt.want.Lon, got.Lon, 1e-9)
		})
	}
}

func TestNormalizeDistrict(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"75001", "75001"},
		{" 75019 ", "75019"},
		{"92100", ""},   // suburb
		{"7500", ""},    // partial
		{"750010", ""},  // too long
		{"Paris", ""},   // free text
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDistrict(tt.input); got != tt.want {
			t.Errorf("NormalizeDistrict(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

const terracesCSV = `Nom de l'enseigne;Typologie;Numéro et voie;Arrondissement;geo_point_2d;SIRET
Chez Gaston;Terrasse ouverte;12 Rue de Rivoli;75001;48.8556, 2.3622;12345678900011
Le Zinc;Contre-terrasse;3 Place des Vosges;75004;;98765432100022
Café Central;Terrasse ouverte;8 Avenue Foch;75116;48.8720, 2.2850;11122233300033
`

func TestConvertTerraces(t *testing.T) {
	records, metrics, err := Convert(strings.NewReader(terracesCSV), mustFind(t, "terrasses"))
	require.NoError(t, err)

	require.Equal(t, 3, metrics.RowsRead)
	require.Equal(t, 2, metrics.Converted)
	require.Equal(t, 1, metrics.NoGeo)

	want := []dataset.Record{
		{
			Type:     dataset.TypeTerrace,
			Title:    "Chez Gaston",
			Address:  "12 Rue de Rivoli",
			District: "75001",
			Geo:      &geo.Point{Lat: 48.8556, Lon: 2.3622},
			Info: map[string]string{
				"Typologie":         "Terrasse ouverte",
				"Numéro et voie":    "12 Rue de Rivoli",
				"Arrondissement":    "75001",
				"Nom de l'enseigne": "Chez Gaston",
				"SIRET":             "12345678900011",
				"geo_point_2d":      "48.8556, 2.3622",
			},
		},
		{
			Type:     dataset.TypeTerrace,
			Title:    "Café Central",
			Address:  "8 Avenue Foch",
			District: "75116",
			Geo:      &geo.Point{Lat: 48.8720, Lon: 2.2850},
			Info: map[string]string{
				"Typologie":         "Terrasse ouverte",
				"Numéro et voie":    "8 Avenue Foch",
				"Arrondissement":    "75116",
				"Nom de l'enseigne": "Café Central",
				"SIRET":             "11122233300033",
				"geo_point_2d":      "48.8720, 2.2850",
			},
		},
	}

	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("unexpected records (-want +got):\n%s", diff)
	}
}

func TestConvertDisruptionAddressCarriesDistrict(t *testing.T) {
	csv := "Identifiant;Objet;Voie(s);Code postal de l'arrondissement;geo_point_2d\n" +
		"777;Travaux de voirie;Boulevard Voltaire;75011;48.8570, 2.3800\n"

	records, _, err := Convert(strings.NewReader(csv), mustFind(t, "perturbant"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	require.Equal(t, "Boulevard Voltaire, 75011", records[0].Address)
	// The historical export displays the arrondissement short.
	require.Equal(t, "7511", records[0].District)
	require.Equal(t, "777", records[0].SourceID)
	require.Equal(t, "Travaux de voirie", records[0].Title)
}

func TestConvertFallbackTitle(t *testing.T) {
	csv := "Identifiant;Voie(s);geo_point_2d\n888;Rue Oberkampf;48.8650, 2.3780\n"

	records, _, err := Convert(strings.NewReader(csv), mustFind(t, "perturbant"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "Sans titre", records[0].Title)
}

func TestConvertSkipsMalformedRows(t *testing.T) {
	csv := "Identifiant;Objet;Voie(s);geo_point_2d\n" +
		"1;Ok;Rue A;48.85, 2.35\n" +
		"3;Broken \"row;Rue C;48.87, 2.37\n" +
		"2;Ok aussi;Rue B;48.86, 2.36\n"

	records, metrics, err := Convert(strings.NewReader(csv), mustFind(t, "perturbant"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, 2, metrics.Converted)
}

// Columns the descriptor doesn't declare still land in the attributes; the
// descriptor controls naming, not inclusion.
func TestConvertKeepsUndeclaredColumns(t *testing.T) {
	csv := "Nom de l'enseigne;Numéro et voie;geo_point_2d;Horaires;Lien Eudonet\n" +
		"Chez Gaston;12 Rue de Rivoli;48.8556, 2.3622;10h-22h;https://eudonet.paris.fr/x/123\n"

	records, _, err := Convert(strings.NewReader(csv), mustFind(t, "terrasses"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	info := records[0].Info
	require.Equal(t, "10h-22h", info["Horaires"])
	require.Equal(t, "https://eudonet.paris.fr/x/123", info["Lien Eudonet"])
	require.Equal(t, "https://eudonet.paris.fr/x/123", info["lien_eudonet"])
}

// An old-vintage column spelling is stored under the canonical attribute
// name, not under the raw header.
func TestConvertCanonicalizesAliasSpelling(t *testing.T) {
	csv := "Référence;Synthèse;Adresse;Identifiant Chantier CITE;geo_point_2d\n" +
		"REF-9;Réfection de chaussée;1 Rue A;123;48.85, 2.35\n"

	records, _, err := Convert(strings.NewReader(csv), mustFind(t, "travaux"))
	require.NoError(t, err)
	require.Len(t, records, 1)

	info := records[0].Info
	require.Equal(t, "REF-9", info["Référence Chantier"])
	require.NotContains(t, info, "Référence")
	require.Equal(t, "Réfection de chaussée", info["Synthèse - Nature du chantier"])
	require.NotContains(t, info, "Synthèse")
}

func TestConvertEmptyInput(t *testing.T) {
	_, _, err := Convert(strings.NewReader(""), mustFind(t, "terrasses"))
	if err == nil {
		t.Fatal("expected an error on headerless input")
	}
}

func mustFind(t *testing.T, q string) *Descriptor {
	t.Helper()

	d, err := Find(q)
	require.NoError(t, err)

	return d
}

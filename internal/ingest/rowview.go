// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Field names a canonical column of the anomaly sheet. Source files label
// these columns inconsistently (accented French, stripped ASCII, English
// exports), so lookup goes through the variant table below instead of
// scattering header literals through the transformer.
type Field string

const (
	FieldEquipmentID   Field = "equipment_id"
	FieldDescription   Field = "description"
	FieldEquipmentName Field = "equipment_name"
	FieldSection       Field = "section"
	FieldDetectionDate Field = "detection_date"
	FieldAvailability  Field = "availability"
	FieldReliability   Field = "reliability"
	FieldProcessSafety Field = "process_safety"
)

// headerVariants maps each canonical field to the normalized forms of the
// header labels observed in source files. Matching happens after
// normalizeHeader, so accents, case, and run-together whitespace never
// appear here.
var headerVariants = map[Field][]string{
	FieldEquipmentID: {
		"num equipement", "num equipment", "numero d'equipement",
		"equipment id", "equipement", "tag equipement", "equipment",
	},
	FieldDescription: {
		"description", "description anomalie", "description de l'anomalie",
		"anomaly description", "libelle anomalie",
	},
	FieldEquipmentName: {
		"description de l'equipement", "description equipement",
		"equipment name", "equipment description", "desc equipement",
	},
	FieldSection: {
		"section proprietaire", "section", "secteur", "department", "unite",
	},
	FieldDetectionDate: {
		"date de detection de l'anomalie", "date de detection",
		"date detection", "detection date", "date d'apparition",
	},
	FieldAvailability: {
		// "disponibilte" is a recurring typo in the source sheets.
		"disponibilite", "disponibilte", "availability",
	},
	FieldReliability: {
		"fiabilite integrite", "fiabilite", "reliability",
		"reliability integrity", "integrite",
	},
	FieldProcessSafety: {
		"process safety", "process safty", "securite des procedes",
		"securite procede",
	},
}

var headerSeparators = regexp.MustCompile(`[\s_\-]+`)

// normalizeHeader lowers, strips diacritics, unifies apostrophes, and
// collapses whitespace/underscore/hyphen runs to one space.
func normalizeHeader(h string) string {
	s := strings.ToLower(strings.TrimSpace(h))
	s = stripDiacritics(s)
	s = strings.ReplaceAll(s, "’", "'")
	s = headerSeparators.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripDiacritics decomposes to NFD and drops combining marks, turning
// "Fiabilité Intégrité" into "Fiabilite Integrite".
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RowView exposes lookup-by-canonical-field over a raw row, resolving
// header drift in one place.
type RowView struct {
	values map[string]string
}

// NewRowView builds a view over a raw header-keyed row.
func NewRowView(raw map[string]string) RowView {
	values := make(map[string]string, len(raw))
	for h, v := range raw {
		key := normalizeHeader(h)
		// First non-empty value wins when two source headers normalize
		// to the same form.
		if existing, ok := values[key]; !ok || strings.TrimSpace(existing) == "" {
			values[key] = v
		}
	}
	return RowView{values: values}
}

// Get returns the trimmed value of the first matching header variant for
// field, or "" when no variant is present.
func (v RowView) Get(field Field) string {
	for _, variant := range headerVariants[field] {
		if val, ok := v.values[variant]; ok {
			if trimmed := strings.TrimSpace(val); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// Has reports whether any header variant for field carries a non-empty value.
func (v RowView) Has(field Field) bool {
	return v.Get(field) != ""
}

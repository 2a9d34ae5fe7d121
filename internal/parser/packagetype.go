package parser

import (
	"strings"
	"unicode"

	"vozruta/internal/core"
)

type packageWord struct {
	words []string
	label core.PackageType
}

// Checked in this order; the first entry present in the text wins.
var packageVocabulary = []packageWord{
	{[]string{"sobre"}, core.PackageEnvelope},
	{[]string{"caja"}, core.PackageBox},
	{[]string{"bicicleta", "bici"}, core.PackageBicycle},
	{[]string{"bolsa"}, core.PackageBag},
	{[]string{"paquete"}, core.PackageGeneric},
	{[]string{"encomienda"}, core.PackageParcel},
}

// DetectPackageType recognises a parcel keyword on word boundaries. It is
// independent of the section; callers only keep it for parcel entries.
func DetectPackageType(text string) (core.PackageType, bool) {
	present := map[string]bool{}
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		present[w] = true
	}
	for _, entry := range packageVocabulary {
		for _, w := range entry.words {
			if present[w] {
				return entry.label, true
			}
		}
	}
	return "", false
}

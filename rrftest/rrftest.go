// Package rrftest builds small RRF files for tests
package rrftest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Column counts of an RRF line once split on '|', trailing separator included
const (
	consoFields = 19
	relFields   = 17
	satFields   = 14
)

// Conso returns an MRCONSO line
func Conso(rxcui, sab, tty, str, suppress string) string {
	f := make([]string, consoFields)
	f[0] = rxcui
	f[11] = sab
	f[12] = tty
	f[14] = str
	f[16] = suppress
	return strings.Join(f, "|")
}

// Rel returns an MRREL line stating "rxcui2 rela rxcui1"
func Rel(rxcui1, rxcui2, rela, sab, suppress string) string {
	f := make([]string, relFields)
	f[0] = rxcui1
	f[4] = rxcui2
	f[7] = rela
	f[10] = sab
	f[14] = suppress
	return strings.Join(f, "|")
}

// Sat returns an MRSAT line
func Sat(rxcui, atn, sab, atv, suppress string) string {
	f := make([]string, satFields)
	f[0] = rxcui
	f[8] = atn
	f[9] = sab
	f[10] = atv
	f[11] = suppress
	return strings.Join(f, "|")
}

// Lines joins rows into a file body
func Lines(rows ...string) string {
	if len(rows) == 0 {
		return ""
	}
	return strings.Join(rows, "\n") + "\n"
}

// Release is the content of the three RRF files
type Release struct {
	Conso []string
	Rel   []string
	Sat   []string
}

// Write stores the release in dir under the standard file names
func (r Release) Write(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"MRCONSO.RRF": Lines(r.Conso...),
		"MRREL.RRF":   Lines(r.Rel...),
		"MRSAT.RRF":   Lines(r.Sat...),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

// Sample is a small release covering every branch of the medication builder
func Sample() Release {
	return Release{
		Conso: []string{
			Conso("161", "RXNORM", "IN", "Acetaminophen", "N"),
			Conso("161", "RXNORM", "SY", "APAP", "N"),
			Conso("161", "MTHSPL", "PT", "ACETAMINOPHEN", ""),
			Conso("161", "DRUGBANK", "SY", "Paracetamol", "N"),
			Conso("1191", "RXNORM", "IN", "Aspirin", "N"),
			Conso("9999", "RXNORM", "IN", "Withdrawn", "O"),
			Conso("723", "RXNORM", "PIN", "Acetaminophen hydrochloride", "N"),
			Conso("723", "RXNORM", "SY", "APAP HCl", "N"),
			Conso("202433", "RXNORM", "BN", "Tylenol", "N"),
			Conso("317541", "RXNORM", "DF", "Oral Tablet", "N"),
			Conso("1151131", "RXNORM", "DFG", "Pill", "N"),
			Conso("315266", "RXNORM", "SCDC", "Acetaminophen 500 MG", "N"),
			Conso("315431", "RXNORM", "SCDC", "Aspirin 81 MG", "N"),
			Conso("198440", "RXNORM", "SCD", "Acetaminophen 500 MG Oral Tablet", "N"),
			Conso("198440", "RXNORM", "SY", "APAP 500 MG Oral Tablet", "N"),
			Conso("198440", "RXNORM", "SY", "acetaminophen 500 mg oral tablet", "N"),
			Conso("243670", "RXNORM", "SCD", "Aspirin 81 MG Oral Tablet", "N"),
			Conso("209387", "RXNORM", "SBD", "Acetaminophen 500 MG Oral Tablet [Tylenol]", "N"),
			Conso("1092189", "RXNORM", "GPCK", "Daily pack", "N"),
			Conso("100", "RXNORM", "TMSY", "Unused term type", "N"),
		},
		Rel: []string{
			Rel("161", "315266", "has_ingredient", "RXNORM", "N"),
			Rel("1191", "315431", "has_ingredient", "RXNORM", "N"),
			Rel("315266", "198440", "consists_of", "RXNORM", "N"),
			Rel("315431", "243670", "consists_of", "RXNORM", "N"),
			Rel("317541", "198440", "has_dose_form", "RXNORM", "N"),
			Rel("1151131", "243670", "has_doseformgroup", "RXNORM", "N"),
			Rel("202433", "209387", "has_ingredient", "RXNORM", "N"),
			Rel("315266", "209387", "consists_of", "RXNORM", "N"),
			Rel("198440", "209387", "isa", "RXNORM", "N"),
			Rel("198440", "1092189", "contains", "RXNORM", "N"),
			Rel("243670", "1092189", "contains", "RXNORM", "N"),
			Rel("723", "161", "has_form", "RXNORM", "N"),
			Rel("161", "315266", "has_ingredient", "MTHSPL", "N"),
			Rel("9999", "315266", "has_ingredient", "RXNORM", "O"),
			Rel("1", "2", "reformulated_to", "RXNORM", "N"),
		},
		Sat: []string{
			Sat("315266", "RXN_STRENGTH", "RXNORM", "500 MG", "N"),
			Sat("315431", "RXN_BOSS_STRENGTH_NUM_VALUE", "RXNORM", "81", "N"),
			Sat("315431", "RXN_BOSS_STRENGTH_NUM_UNIT", "RXNORM", "MG", "N"),
			Sat("315431", "RXN_BOSS_STRENGTH_DENOM_VALUE", "RXNORM", "1", "N"),
			Sat("315431", "RXN_BOSS_STRENGTH_DENOM_UNIT", "RXNORM", "EACH", "N"),
			Sat("315431", "RXN_STRENGTH", "RXNORM", "81 MG", "N"),
			Sat("315266", "RXN_AVAILABLE_STRENGTH", "RXNORM", "500 MG", "N"),
			Sat("315266", "RXN_STRENGTH", "MTHSPL", "999 MG", "N"),
		},
	}
}

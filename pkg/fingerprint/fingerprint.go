package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
)

// Fingerprint is a stable content-derived key identifying a correction
// request. It is the sole key shared across the cache, the ledger and
// the learned store.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// DefaultContextBound caps how much surrounding context contributes to
// the key, so fingerprint cost stays bounded regardless of document size.
const DefaultContextBound = 256

// Index derives fingerprints for correction units.
type Index struct {
	// Prefix for all generated keys (e.g., "corrigo_")
	prefix string
	// Maximum number of context bytes folded into the key
	contextBound int
	folder       cases.Caser
}

// NewIndex creates a new fingerprint index.
func NewIndex(prefix string) *Index {
	if prefix == "" {
		prefix = "corrigo_"
	}
	return &Index{
		prefix:       prefix,
		contextBound: DefaultContextBound,
		folder:       cases.Fold(),
	}
}

// Fingerprint derives the key for a unit. It is pure and total: equal
// logical inputs always produce the identical fingerprint, and inputs
// differing only in whitespace runs, category casing or Unicode
// composition collide.
func (ix *Index) Fingerprint(unit corrections.Unit) Fingerprint {
	keyData := fmt.Sprintf("%s|%s|%s",
		ix.normalizeText(unit.Text),
		ix.normalizeCategory(unit.Category),
		ix.normalizeText(ix.truncateContext(unit.Context)),
	)

	h := sha256.New()
	h.Write([]byte(keyData))
	hash := hex.EncodeToString(h.Sum(nil))

	// Truncate hash for readability; 16 hex chars is plenty of keyspace
	return Fingerprint(ix.prefix + hash[:16])
}

// normalizeText folds whitespace runs to single spaces and applies NFC
// so composed and decomposed accents hash identically.
func (ix *Index) normalizeText(s string) string {
	return norm.NFC.String(strings.Join(strings.Fields(s), " "))
}

// normalizeCategory case-folds the category label so "Grammar",
// "GRAMMAR" and "grammar" are the same request.
func (ix *Index) normalizeCategory(category string) string {
	return ix.folder.String(strings.TrimSpace(category))
}

func (ix *Index) truncateContext(context string) string {
	if len(context) <= ix.contextBound {
		return context
	}
	// Cut on a rune boundary at or below the bound
	cut := ix.contextBound
	for cut > 0 && !isRuneStart(context[cut]) {
		cut--
	}
	return context[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

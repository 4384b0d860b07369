// Package normalize folds forge identifiers (hosts, owners, repo names) into
// comparison keys so differently cased references to one repository collide
// Pipeline order
// 1 Trim surrounding whitespace and slashes
// 2 UTF-8 repair drop invalid bytes
// 3 Unicode NFKC normalization
// 4 Case folding
// 5 Remove format characters (zero-width joiners, BOM)
// 6 Width fold fullwidth to ASCII
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// pool of fresh transformer chains, transformers are stateful
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),
			runes.Remove(runes.In(unicode.Cf)),
			width.Fold,
		)
	},
}

// Key returns the comparison key for a single identifier segment
func Key(s string) string {
	s = strings.Trim(s, " \t\r\n/")
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")

	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		// the chain only fails on malformed input which was repaired above
		return strings.ToLower(s)
	}
	return ns
}

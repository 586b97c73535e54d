// Package options defines the generic options interface and common
// helpers shared by per-component option structs.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when
// non-empty, producing flag names like "milvus.address" or
// "ingest.milvus.address".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions is implemented by every component option struct.
type IOptions interface {
	// Validate checks the options and may complete derived fields.
	Validate() []error

	// AddFlags registers the options on the given flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

package models

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes, one per entity kind.
const (
	PrefixOrder      = "ORD"
	PrefixShift      = "SFT"
	PrefixActivity   = "ACT"
	PrefixIngredient = "ING"
	PrefixMenuItem   = "MNU"
	PrefixCashier    = "CSH"
)

// NewID returns a prefixed random identifier such as "ORD-3f2a9c0e4b1d".
func NewID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + raw[:16]
}

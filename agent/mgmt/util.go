// SPDX-License-Identifier: GPL-3.0-or-later

package mgmt

import (
	"maps"
	"slices"
)

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package utilmetric

import "strings"

const NamespaceSeparator = "_"

// AppendNamespace joins non-empty parts with NamespaceSeparator.
func AppendNamespace(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.Join(nonEmpty, NamespaceSeparator)
}

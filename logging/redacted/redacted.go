// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.
//
// Copyright 2025 FeatureForm Inc.
//

package redacted

import (
	"net/url"
)

const String = "<redacted>"

// URL strips any password embedded in a locator before it is logged or
// returned to a caller. Values that do not parse are redacted entirely.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return String
	}
	if u.User == nil {
		return raw
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), String)
	}
	return u.String()
}

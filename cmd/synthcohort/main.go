// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	synthcohort "github.com/clinsynth/synthcohort"
)

func main() {
	synthcohort.Main()
}

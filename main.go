// Copyright 2025 The LexPar Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/lexpar/lexpar/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

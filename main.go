// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// cbusstat - C-Bus Serial Interface Tool
//
// A CLI tool for monitoring, decoding and controlling C-Bus lighting and
// trigger groups through a PC interface.

package main

import (
	"os"

	"github.com/Thermoquad/cbusstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Copyright 2025 The MapOfSecrets Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/Femosky/MapOfSecrets/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}

// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Command tonegen edits the compass catalog and renders its tones offline.
package main

import (
	"log"
	"os"

	"github.com/relabs-tech/audio_compass/internal/tonegen"
)

func main() {
	if err := tonegen.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

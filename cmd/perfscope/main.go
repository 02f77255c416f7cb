// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command perfscope measures the running time and memory of Java programs
// and labels their complexity.
package main

import (
	"os"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its error to an exit code.
func run() int {
	err := rootCmd.Execute()
	closeApp()
	if err != nil {
		reportError(err)
		return exitCodeFor(err)
	}
	return CLIExitSuccess
}

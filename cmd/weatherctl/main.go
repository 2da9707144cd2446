// Package main is the entry point for the weatherctl admin tool.
package main

import (
	"os"

	"github.com/smukkama/weather-monitor/cmd/weatherctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

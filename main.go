// Package main is the entry point of the ragdelta CLI.
package main

import (
	"github.com/huangsam/ragdelta/cmd"
	"github.com/huangsam/ragdelta/internal/contract"
	"github.com/huangsam/ragdelta/internal/history"
)

func main() {
	cmd.SetHistoryManager(history.Manager)

	err := cmd.Execute()
	history.CloseHistory()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	if err != nil {
		contract.LogFatal("Cannot run ragdelta", err)
	}
}

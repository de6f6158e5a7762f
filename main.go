package main

import (
	"os"

	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		zap.L().Error("Command failed", zap.Error(err))
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

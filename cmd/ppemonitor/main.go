package main

import (
	"os"

	"ppe-monitor/internal/cli"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logrus.WithError(err).Error("ppemonitor failed")
		os.Exit(1)
	}
}

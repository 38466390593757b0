package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.4.0"
)

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

// Command consent records, withdraws and shows the operator's agreement to
// location collection on this device.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/benmeehan/location-agent/internal/utils"
	"github.com/benmeehan/location-agent/pkg/consent"
	"github.com/benmeehan/location-agent/pkg/file"
	"github.com/rs/zerolog"
)

const usage = `usage: consent [-config path] <grant -by NAME | revoke | status>`

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	fileClient := file.NewFileService()
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	store := consent.NewStore(config.Consent.File, fileClient)
	if err := store.Load(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load consent record")
	}

	switch flag.Arg(0) {
	case "grant":
		grantCmd := flag.NewFlagSet("grant", flag.ExitOnError)
		by := grantCmd.String("by", "", "name of the person granting consent")
		grantCmd.Parse(flag.Args()[1:])

		fmt.Printf("This device will collect its precise location and publish it to %s.\n", config.MQTT.Broker)
		fmt.Printf("Purpose: %s\n", config.Consent.Purpose)

		record, err := store.Grant(*by, config.Consent.Purpose)
		if err != nil {
			logger.Fatal().Err(err).Msg("Consent not recorded")
		}
		logger.Info().Str("granted_by", record.GrantedBy).Time("granted_at", record.GrantedAt).Msg("Consent granted")

	case "revoke":
		record, err := store.Revoke()
		if err != nil {
			logger.Fatal().Err(err).Msg("Consent not revoked")
		}
		logger.Info().Time("revoked_at", record.RevokedAt).Msg("Consent revoked; location collection stops at the next cycle")

	case "status":
		record := store.Status()
		fmt.Printf("granted:    %t\n", record.Granted)
		if record.GrantedBy != "" {
			fmt.Printf("granted by: %s\n", record.GrantedBy)
			fmt.Printf("granted at: %s\n", record.GrantedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if !record.RevokedAt.IsZero() {
			fmt.Printf("revoked at: %s\n", record.RevokedAt.Format("2006-01-02 15:04:05 MST"))
		}
		if record.Purpose != "" {
			fmt.Printf("purpose:    %s\n", record.Purpose)
		}

	default:
		flag.Usage()
		os.Exit(2)
	}
}

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/tinysat/uplink/internal/auth"
	"github.com/tinysat/uplink/internal/cdh"
	"github.com/tinysat/uplink/internal/config"
	"github.com/tinysat/uplink/internal/ground"
	"github.com/tinysat/uplink/internal/observability"
	"github.com/tinysat/uplink/internal/ops"
	"github.com/tinysat/uplink/internal/packet"
	"github.com/tinysat/uplink/internal/radio"
)

const usage = `commands:
  counter            query the satellite's replay counter
  reset              authenticated satellite reset
  mod <FSK|LoRa>     change radio modulation
  joke               request a joke downlink
  ping               legacy recovery ping (password path)
  repeat <words...>  legacy recovery echo
  quit`

func main() {
	logger := observability.InitLogger("groundctl")

	configPath := flag.String("config", "cmd/groundctl/config.toml", "path to ground config")
	legacyPassword := flag.String("legacy-password", "Hello World!", "passphrase for the recovery path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	r, err := radio.NewUDPRadio(cfg.RadioBindAddr, cfg.RadioPeerAddr, cfg.MaxFrameSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bring up radio")
	}
	defer r.Close()

	link := packet.NewManager(r, cfg.FrameDelay.Std())
	station := ground.NewStation(logger, link, auth.New(cfg.HMACSecret), cfg.CubesatName, 0)

	if cfg.OpsAddr != "" {
		server := ops.New(cfg.OpsAddr, logger)
		go func() {
			if err := server.Run(); err != nil {
				log.Error().Err(err).Msg("ops server stopped")
			}
		}()
	}

	if v, err := station.QueryCounter(cfg.ListenTimeout.Std()); err != nil {
		log.Warn().Err(err).Msg("counter query failed, starting session at 0")
	} else {
		log.Info().Uint16("counter", v).Msg("session counter adopted from satellite")
	}

	fmt.Println(usage)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var resp []byte
		var cmdErr error
		switch fields[0] {
		case "quit", "exit":
			return
		case "counter":
			v, err := station.QueryCounter(cfg.ListenTimeout.Std())
			if err != nil {
				log.Error().Err(err).Msg("counter query failed")
				continue
			}
			fmt.Printf("satellite counter: %d\n", v)
			continue
		case "reset":
			resp, cmdErr = station.SendCommand(cdh.CommandReset, nil, cfg.ListenTimeout.Std())
		case "mod":
			if len(fields) < 2 {
				fmt.Println("usage: mod <FSK|LoRa>")
				continue
			}
			resp, cmdErr = station.SendCommand(cdh.CommandChangeRadioModulation, fields[1:2], cfg.ListenTimeout.Std())
		case "joke":
			resp, cmdErr = station.SendCommand(cdh.CommandSendJoke, nil, cfg.ListenTimeout.Std())
		case "ping":
			resp, cmdErr = sendLegacy(station, link, *legacyPassword, "ping", nil, cfg)
		case "repeat":
			if len(fields) < 2 {
				fmt.Println("usage: repeat <words...>")
				continue
			}
			resp, cmdErr = sendLegacy(station, link, *legacyPassword, "repeat", fields[1:], cfg)
		default:
			fmt.Println(usage)
			continue
		}

		if cmdErr != nil {
			log.Error().Err(cmdErr).Msg("command failed")
			continue
		}
		if resp == nil {
			fmt.Println("no response before timeout")
			continue
		}
		fmt.Printf("satellite: %s\n", resp)
	}
}

func sendLegacy(station *ground.Station, link *packet.Manager, password, command string, args []string, cfg config.Config) ([]byte, error) {
	payload, err := station.BuildLegacy(password, command, args)
	if err != nil {
		return nil, err
	}
	if err := link.Send(payload); err != nil {
		return nil, err
	}
	resp, err := link.Listen(cfg.ListenTimeout.Std())
	if err != nil {
		return nil, err
	}
	if string(resp) == "ACK" {
		return link.Listen(cfg.ListenTimeout.Std())
	}
	return resp, nil
}

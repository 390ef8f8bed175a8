package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/tinysat/uplink/internal/auth"
	"github.com/tinysat/uplink/internal/cdh"
	"github.com/tinysat/uplink/internal/config"
	"github.com/tinysat/uplink/internal/nvm"
	"github.com/tinysat/uplink/internal/observability"
	"github.com/tinysat/uplink/internal/packet"
	"github.com/tinysat/uplink/internal/radio"
)

// hwActions is the benchtop stand-in for the satellite's hardware
// handlers. A flight build swaps in the real watchdog and radio deck.
type hwActions struct{}

func (hwActions) Reset() error {
	log.Info().Msg("reset requested, exiting for supervisor restart")
	os.Exit(0)
	return nil
}

func (hwActions) SetModulation(modulation string) error {
	log.Info().Str("modulation", modulation).Msg("radio modulation applied")
	return nil
}

func main() {
	logger := observability.InitLogger("flightctl")
	observability.Register()

	configPath := flag.String("config", "cmd/flightctl/config.toml", "path to uplink config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log.Info().Str("path", *configPath).Str("name", cfg.CubesatName).Msg("loaded config")

	store, err := nvm.OpenFileStore(cfg.NVMPath, cfg.NVMSize)
	if err != nil {
		log.Fatal().Err(err).Msg("non-volatile store unavailable")
	}
	defer store.Close()

	counter, err := nvm.NewCounter16(store, cfg.CounterOffset)
	if err != nil {
		log.Fatal().Err(err).Msg("replay counter unavailable")
	}

	r, err := radio.NewUDPRadio(cfg.RadioBindAddr, cfg.RadioPeerAddr, cfg.MaxFrameSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bring up radio")
	}
	defer r.Close()

	link := packet.NewManager(r, cfg.FrameDelay.Std())
	handler := cdh.NewHandler(logger, &cfg, link, auth.New(cfg.HMACSecret), counter, hwActions{})

	log.Info().Str("bind", cfg.RadioBindAddr).Msg("listening for commands")
	for {
		out := handler.ListenForCommands(cfg.ListenTimeout.Std())
		if out.Kind != cdh.OutcomeNone {
			log.Info().Str("outcome", out.Kind.String()).Str("command", out.Command).Msg("pass complete")
		}
	}
}

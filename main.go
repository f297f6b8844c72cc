// WorldCore is an authoritative server for a small multiplayer room world.
// Clients talk to it over UDP; fights happen peer to peer.
package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"WorldCore/game"
)

var (
	isDebug    = flag.Bool("debug", false, "Enable debug log output")
	configPath = flag.String("config", "config.toml", "Path of the config file")
)

func main() {
	flag.Parse()

	var logger *zap.Logger
	if *isDebug {
		logger = unwrap(zap.NewDevelopment())
	} else {
		logger = unwrap(zap.NewProduction())
	}
	defer func(logger *zap.Logger) {
		// Sync fails on terminals; nothing to do about it.
		_ = logger.Sync()
	}(logger)

	logger.Info("Server start")
	printBuildInfo(logger)
	defer logger.Info("Server exit")

	config, err := readConfig(*configPath)
	if err != nil {
		logger.Error("Read config fail", zap.Error(err))
		return
	}

	addr, err := net.ResolveUDPAddr("udp", config.ListenAddress)
	if err != nil {
		logger.Error("Resolve listen address fail", zap.Error(err))
		return
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		logger.Error("Listen fail", zap.Error(err))
		return
	}
	logger.Info("Start listening", zap.Stringer("address", conn.LocalAddr()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := game.NewGame(logger, config, conn)
	if err != nil {
		conn.Close()
		logger.Error("Init game fail", zap.Error(err))
		return
	}
	if err := g.Run(ctx); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}

func printBuildInfo(logger *zap.Logger) {
	binaryInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	settings := make(map[string]string)
	for _, v := range binaryInfo.Settings {
		settings[v.Key] = v.Value
	}
	logger.Debug("Build info", zap.Any("settings", settings))
}

// readConfig reads path over the defaults. A missing file keeps the
// defaults; unknown keys are an error.
func readConfig(path string) (game.Config, error) {
	c := game.DefaultConfig()
	meta, err := toml.DecodeFile(path, &c)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return game.Config{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		var err errUnknownConfig
		for _, key := range undecoded {
			err = append(err, key.String())
		}
		return game.Config{}, err
	}

	return c, nil
}

type errUnknownConfig []string

func (e errUnknownConfig) Error() string {
	return "unknown config keys: [" + strings.Join(e, ", ") + "]"
}

func unwrap[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

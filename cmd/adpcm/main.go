// Copyright 2023 LiveKit, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/livekit/protocol/logger"

	"github.com/livekit/adpcm/pkg/config"
	"github.com/livekit/adpcm/pkg/errors"
	"github.com/livekit/adpcm/pkg/service"
	"github.com/livekit/adpcm/pkg/stats"
	"github.com/livekit/adpcm/version"
)

func main() {
	cmd := newCommand()
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:        "adpcm",
		Usage:       "IMA ADPCM encoder and decoder",
		Version:     version.Version,
		Description: "Encodes 16-bit PCM audio to 4-bit IMA ADPCM codes and back",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "ADPCM yaml config file",
				Sources: cli.EnvVars("ADPCM_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "config-body",
				Usage:   "ADPCM yaml config body",
				Sources: cli.EnvVars("ADPCM_CONFIG_BODY"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "encode",
				Usage:     "Encode a WAV or Ogg file to ADPCM codes",
				ArgsUsage: "<input.wav> <output.adpcm>",
				Action:    runEncode,
			},
			{
				Name:      "decode",
				Usage:     "Decode ADPCM codes to a WAV file",
				ArgsUsage: "<input.adpcm> <output.wav>",
				Action:    runDecode,
			},
			{
				Name:      "roundtrip",
				Usage:     "Encode and decode a file, optionally simulating code loss",
				ArgsUsage: "<input.wav> <output.wav>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rtp",
						Usage: "carry packed codes in RTP packets, loss_every then drops packets",
					},
				},
				Action: runRoundTrip,
			},
		},
	}
}

func runEncode(ctx context.Context, c *cli.Command) error {
	return run(ctx, c, func(ctx context.Context, svc *service.Service, in, out string) error {
		return svc.Encode(ctx, in, out)
	})
}

func runDecode(ctx context.Context, c *cli.Command) error {
	return run(ctx, c, func(ctx context.Context, svc *service.Service, in, out string) error {
		return svc.Decode(ctx, in, out)
	})
}

func runRoundTrip(ctx context.Context, c *cli.Command) error {
	return run(ctx, c, func(ctx context.Context, svc *service.Service, in, out string) error {
		var err error
		if c.Bool("rtp") {
			_, err = svc.RoundTripRTP(ctx, in, out)
		} else {
			_, err = svc.RoundTrip(ctx, in, out)
		}
		return err
	})
}

func run(ctx context.Context, c *cli.Command, job func(ctx context.Context, svc *service.Service, in, out string) error) error {
	in, out := c.Args().Get(0), c.Args().Get(1)
	if in == "" {
		return errors.ErrMissingArgument("input")
	}
	if out == "" {
		return errors.ErrMissingArgument("output")
	}
	conf, err := getConfig(c, true)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	mon := stats.NewMonitor(conf)
	if err = mon.Start(nil); err != nil {
		return err
	}
	defer mon.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stopChan)
	go func() {
		select {
		case sig := <-stopChan:
			log.Infow("exit requested, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	svc := service.NewService(conf, mon, log)
	return job(ctx, svc, in, out)
}

func getConfig(c *cli.Command, initialize bool) (*config.Config, error) {
	configFile := c.String("config")
	configBody := c.String("config-body")
	if configBody == "" && configFile != "" {
		content, err := os.ReadFile(configFile)
		if err != nil {
			return nil, err
		}
		configBody = string(content)
	}

	conf, err := config.NewConfig(configBody)
	if err != nil {
		return nil, err
	}

	if initialize {
		err = conf.Init()
		if err != nil {
			return nil, err
		}
	}

	return conf, nil
}

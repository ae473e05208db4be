package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradeorchestrator/cmd/orchestrate"
	"tradeorchestrator/cmd/replay"
	"tradeorchestrator/cmd/serve"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Trade Orchestrator CMD"
	app.Usage = "The trade orchestrator command line interface"

	app.Commands = []cli.Command{
		orchestrateCMD,
		serveCMD,
		replayCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	orchestrateCMD = cli.Command{
		Name:        "orchestrate",
		Usage:       "run the headless decision loop",
		Action:      orchestrateAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the decision loop without the operator API`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the decision loop with the operator API",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the decision loop and the query/operator HTTP API in one process`,
	}
	replayCMD = cli.Command{
		Name:      "replay",
		Usage:     "print audit decisions",
		Action:    replayAction,
		ArgsUsage: "",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "correlation", Usage: "correlation id of one cycle"},
			cli.UintFlag{Name: "portfolio", Usage: "portfolio id to search"},
			cli.StringFlag{Name: "symbol", Usage: "filter by symbol"},
			cli.IntFlag{Name: "limit", Usage: "max rows", Value: 100},
		},
		Description: `Print the audit decision chain for a cycle or a filtered search`,
	}
)

func orchestrateAction(_ *cli.Context) error {
	logrus.Info("Starting orchestrate CMD")

	loop := &orchestrate.Orchestrate{}
	if err := loop.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting serve CMD")

	srv := &serve.Serve{}
	if err := srv.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func replayAction(c *cli.Context) error {
	r := &replay.Replay{
		CorrelationID: c.String("correlation"),
		PortfolioID:   uint(c.Uint("portfolio")),
		Symbol:        c.String("symbol"),
		Limit:         c.Int("limit"),
	}
	if err := r.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

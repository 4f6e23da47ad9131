package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/freshloop/pkg/agent"
	"github.com/go-go-golems/freshloop/pkg/events"
	"github.com/go-go-golems/freshloop/pkg/inference/openai"
	"github.com/go-go-golems/freshloop/pkg/search"
	"github.com/go-go-golems/freshloop/pkg/tools"
	"github.com/go-go-golems/freshloop/pkg/transcript"
)

const runEventsTopic = "freshloop.run"

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single time-sensitive question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := agentConfigFromViper()
		a, router, err := buildAgent(cfg, viper.GetBool("progress"))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if router != nil {
			routerCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err := router.Run(routerCtx); err != nil && routerCtx.Err() == nil {
					log.Error().Err(err).Msg("event router stopped")
				}
			}()
			<-router.Running()
			defer func() { _ = router.Close() }()
		}

		res, err := a.RunParts(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Println(res.Full)
		fmt.Println()
		fmt.Printf("direct answer: %s\n", res.Direct)

		if viper.GetBool("show-transcript") {
			transcript.FprintTranscript(os.Stderr, res.Transcript)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("progress", false, "print run events to stderr while reasoning")
	askCmd.Flags().Bool("show-transcript", false, "print the full transcript after the run")
	_ = viper.BindPFlag("progress", askCmd.Flags().Lookup("progress"))
	_ = viper.BindPFlag("show-transcript", askCmd.Flags().Lookup("show-transcript"))
	rootCmd.AddCommand(askCmd)
}

// buildAgent wires the engine, tools and optional event router for a run.
func buildAgent(cfg agent.Config, progress bool) (*agent.Agent, *events.EventRouter, error) {
	eng, err := openai.NewEngine("")
	if err != nil {
		return nil, nil, errors.Wrap(err, "building inference engine")
	}

	hp := agent.HyperparamsForModel(cfg.Model)
	registry, err := tools.NewRegistry(
		tools.NewGoogleTool(tools.GoogleConfig{
			DefaultProvider: cfg.Provider,
			Locale:          search.DefaultLocale,
			Budget:          hp.EvidenceBudget(),
		}),
		tools.NewCalculatorTool(),
	)
	if err != nil {
		return nil, nil, errors.Wrap(err, "building tool registry")
	}

	opts := []agent.Option{}
	var router *events.EventRouter
	if progress {
		router, err = events.NewEventRouter()
		if err != nil {
			return nil, nil, errors.Wrap(err, "building event router")
		}
		router.AddHandler("print-progress", runEventsTopic, events.PrintEvents(os.Stderr))
		opts = append(opts, agent.WithSink(router.Sink(runEventsTopic)))
	}

	a, err := agent.New(cfg, eng, registry, opts...)
	if err != nil {
		return nil, nil, err
	}
	return a, router, nil
}

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/freshloop/pkg/agent"
	"github.com/go-go-golems/freshloop/pkg/logging"
)

var rootCmd = &cobra.Command{
	Use:   "freshloop",
	Short: "Temporal question answering with a tool-using reasoning loop",
	Long: `freshloop answers time-sensitive questions by reasoning in rounds:
each round the model may issue one web search or calculation, read the
evidence, and update its plan before answering.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		return logging.Init(logging.Config{
			Level:      viper.GetString("log-level"),
			WithCaller: viper.GetBool("log-caller"),
		})
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default $HOME/.freshloop.yaml)")
	pf.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	pf.Bool("log-caller", false, "add caller info to log entries")
	pf.String("model", "gpt-4o", "model to use for reasoning")
	pf.String("provider", "serper", "search provider (serper or serpapi)")
	pf.Int("max-rounds", 8, "maximum reasoning rounds per question")
	pf.Float64("temperature", 0, "sampling temperature")
	pf.String("timezone", "America/Chicago", "timezone for the date context")
	pf.Bool("debug", false, "dump transcript traces to stderr")

	_ = viper.BindPFlags(pf)
}

func initConfig() error {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".freshloop")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME")
		viper.AddConfigPath(".")
	}
	viper.SetEnvPrefix("FRESHLOOP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func agentConfigFromViper() agent.Config {
	return agent.Config{
		Model:       viper.GetString("model"),
		Provider:    viper.GetString("provider"),
		MaxRounds:   viper.GetInt("max-rounds"),
		Temperature: viper.GetFloat64("temperature"),
		Timezone:    viper.GetString("timezone"),
		Debug:       viper.GetBool("debug"),
	}
}

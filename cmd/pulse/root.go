// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/pulse/internal/log"
	"github.com/teradata-labs/pulse/internal/version"
)

// Exit codes.
const (
	exitOK       = 0
	exitConfig   = 2
	exitTarget   = 3
	exitPartial  = 4
	exitInternal = 5
)

var (
	cfgFile string
	config  *Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:     "pulse",
	Short:   "Pulse - multi-technology database health-check engine",
	Long:    `Pulse connects to configured database targets, runs curated health checks, evaluates severity rules, and produces structured findings, reports, and trend history.`,
	Version: version.Get(),
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfig)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./pulse.yaml)")

	rootCmd.PersistentFlags().Int("workers", 4, "parallel target workers")
	rootCmd.PersistentFlags().String("report", "standard", "report definition to run")
	rootCmd.PersistentFlags().Int("prompt-budget", 16000, "prompt token budget")
	rootCmd.PersistentFlags().String("tokenizer", "chars4", "token estimator (chars4, tiktoken)")
	rootCmd.PersistentFlags().String("report-file", "", "custom report definitions YAML")

	rootCmd.PersistentFlags().String("llm-provider", "", "LLM provider (anthropic, openai; empty disables)")
	rootCmd.PersistentFlags().String("llm-model", "", "LLM model override")

	rootCmd.PersistentFlags().String("trend-backend", "", "trend store backend (postgres, sqlite; empty disables)")
	rootCmd.PersistentFlags().String("trend-dsn", "", "postgres trend store DSN")
	rootCmd.PersistentFlags().String("trend-path", "", "sqlite trend store path")

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "log in JSON format")

	_ = viper.BindPFlag("engine.workers", rootCmd.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("engine.report", rootCmd.PersistentFlags().Lookup("report"))
	_ = viper.BindPFlag("engine.prompt_budget", rootCmd.PersistentFlags().Lookup("prompt-budget"))
	_ = viper.BindPFlag("engine.tokenizer", rootCmd.PersistentFlags().Lookup("tokenizer"))
	_ = viper.BindPFlag("engine.report_file", rootCmd.PersistentFlags().Lookup("report-file"))

	_ = viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("llm-provider"))
	_ = viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("llm-model"))

	_ = viper.BindPFlag("trend.backend", rootCmd.PersistentFlags().Lookup("trend-backend"))
	_ = viper.BindPFlag("trend.dsn", rootCmd.PersistentFlags().Lookup("trend-dsn"))
	_ = viper.BindPFlag("trend.path", rootCmd.PersistentFlags().Lookup("trend-path"))

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("log-json"))
}

// initConfig reads the config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pulse")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.pulse")
	}

	viper.SetEnvPrefix("PULSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "reading config: %v\n", err)
			os.Exit(exitConfig)
		}
	}

	config = &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Fprintf(os.Stderr, "parsing config: %v\n", err)
		os.Exit(exitConfig)
	}

	if err := log.Init(config.Logging.Level, config.Logging.JSON); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(exitConfig)
	}
}

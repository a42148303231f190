/*
Copyright 2026 Benny Powers. All rights reserved.
Use of this source code is governed by the GPLv3
license that can be found in the LICENSE file.
*/

// Package cmd provides CLI commands for parselib.
package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/parselib/cmd/check"
	"bennypowers.dev/parselib/cmd/parse"
	"bennypowers.dev/parselib/cmd/search"
	"bennypowers.dev/parselib/cmd/version"
)

var rootCmd = &cobra.Command{
	Use:   "parselib",
	Short: "Parse source files with PEG grammars",
	Long: `parselib loads .grm grammar files and parses source files against them,
printing or writing each parse tree as JSON.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringP("grammar", "g", "", "Grammar file (overrides config)")
	rootCmd.PersistentFlags().IntP("log-level", "l", -1, "Session log level: 0 silent, 1 error, 2 warn, 3 info, 4 debug")
	rootCmd.PersistentFlags().String("root", ".", "Project root holding .config/parselib.*")

	_ = viper.BindPFlag("grammar", rootCmd.PersistentFlags().Lookup("grammar"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))

	viper.SetEnvPrefix("PARSELIB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(parse.Cmd)
	rootCmd.AddCommand(check.Cmd)
	rootCmd.AddCommand(search.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

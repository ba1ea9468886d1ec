package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func init() {
	cmdConfigInit.Flags().BoolP("force", "f", false, "overwrite an existing file")

	cmdConfig.AddCommand(cmdConfigInit)
	cmdConfig.AddCommand(cmdConfigShow)
	rootCmd.AddCommand(cmdConfig)
}

var (
	cmdConfig = &cobra.Command{
		Use:   "config",
		Short: "Manage the ws281xctl configuration file",
	}

	cmdConfigInit = &cobra.Command{
		Use:     "init [FILE]",
		Short:   "Write the default configuration to FILE or stdout",
		Example: "ws281xctl config init ws281x.yaml",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeConfig(os.Stdout, defaultConfig())
			}

			force, _ := cmd.Flags().GetBool("force")
			flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if force {
				flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(args[0], flag, 0o644)
			if errors.Is(err, os.ErrExist) {
				return humane.Wrap(err, args[0]+" already exists", "pass --force to overwrite it")
			}
			if err != nil {
				return humane.Wrap(err, "failed to create "+args[0], "check that the directory exists and is writable")
			}

			if err := writeConfig(f, defaultConfig()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return humane.Wrap(err, "failed to write "+args[0], "check the free space of the file system")
			}
			log.FromContext(cmd.Context()).Info("Wrote default configuration", zap.String("file", args[0]))
			return nil
		},
	}

	cmdConfigShow = &cobra.Command{
		Use:     "show",
		Short:   "Print the effective configuration after applying file, environment and flags",
		Example: "WS281X_WS2812_STRATEGY=streaming ws281xctl config show",
		Args:    cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeConfig(os.Stdout, configFromContext(cmd.Context()))
		},
	}
)

func writeConfig(w io.Writer, cfg Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return enc.Close()
}

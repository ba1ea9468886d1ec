package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/compute-blade-community/ws281x-dma/pkg/log"
	"github.com/sierrasoftworks/humane-errors-go"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	Version string
	Commit  string
	Date    string
)

// bindFlags binds the named flags to viper keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %q: %v", name, err))
		}
	}
}

// closeOrWarn closes c and logs a failure, for use in defer.
func closeOrWarn(ctx context.Context, c io.Closer, msg string) {
	if err := c.Close(); err != nil {
		log.FromContext(ctx).WithError(err).Warn(msg)
	}
}

func formatError(err error) string {
	var herr humane.Error
	if !errors.As(err, &herr) {
		return "error: " + err.Error()
	}

	var sb strings.Builder
	sb.WriteString("error: " + herr.Error())
	if cause := herr.Cause(); cause != nil {
		sb.WriteString("\n  cause: " + cause.Error())
	}
	for _, advice := range herr.Advice() {
		sb.WriteString("\n  hint: " + advice)
	}
	return sb.String()
}

func main() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// Command mixerd runs the audio mixer as a standalone daemon.
//
// It listens for raw PCM frames over UDP, mixes them on a fixed cadence,
// and returns a personalized mix-minus stream to every peer. Configuration
// comes from an optional YAML file with flag overrides for the addresses.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/audiomixer"
	"github.com/opd-ai/audiomixer/config"
)

var (
	configPath    string
	listenAddr    string
	directoryAddr string
	logLevel      string
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mixerd",
		Short: "Real-time many-to-many audio mixer",
		Long: `mixerd ingests raw PCM audio frames from UDP peers, mixes them on a
fixed cadence, and sends each peer the master mix with its own audio
removed (mix-minus) so nobody hears their own echo.`,
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration file")
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "UDP listen address override")
	cmd.Flags().StringVarP(&directoryAddr, "directory", "d", "", "directory service address override")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if directoryAddr != "" {
		cfg.DirectoryAddr = directoryAddr
	}

	m, err := audiomixer.New(cfg)
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig
	logrus.WithField("signal", received.String()).Info("Shutting down")

	return m.Stop()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logrus.WithField("error", err.Error()).Fatal("mixerd failed")
	}
}

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/ui"
	"github.com/BioHazard786/rendezvous/internal/version"
)

var flagConfigFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rendezvous",
	Short: "Rendezvous and signaling relay for peer-to-peer WebRTC sessions",
	Long: `rendezvous pairs two clients by a shared numeric password and relays their
WebRTC offers, answers and ICE candidates until they can talk directly.

Run "rendezvous serve" to start the signaling server and "rendezvous peer" to
probe it end to end with a real WebRTC data channel.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfigFile, "config", "c", "", "path to a TOML config file (env "+config.EnvConfigFile+")")

	rootCmd.AddCommand(serveCmd, peerCmd, statusCmd, versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError(err.Error())
		stop()
		os.Exit(1)
	}
}

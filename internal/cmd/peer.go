package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/peer"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

// closeGrace lets the last pong reach the other side before the data
// channel goes away.
const closeGrace = 500 * time.Millisecond

var phaseMessages = map[peer.Phase]string{
	peer.PhaseWaiting:     "Waiting for the other peer...",
	peer.PhaseNegotiating: "Negotiating a data channel...",
	peer.PhaseMeasuring:   "Measuring round trip...",
}

var (
	flagServerURL string
	flagPassword  string
	flagSTUN      string
	flagTimeout   time.Duration
)

var peerCmd = &cobra.Command{
	Use:   "peer",
	Short: "Pair with another peer and open a WebRTC data channel",
	Long: `Connect to a signaling server, pair with another peer and measure a ping
over a WebRTC data channel negotiated through the server.

Start one peer without a password and share the password it prints; start
the second peer with --password.

Examples:
  rendezvous peer
  rendezvous peer --password 7312
  rendezvous peer --server wss://signal.example.com/ --password 7312`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			ConfigFile: flagConfigFile,
			ServerURL:  flagServerURL,
			STUNServer: flagSTUN,
		})
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
		defer cancel()
		return runPeer(ctx, cfg, flagPassword)
	},
}

func init() {
	f := peerCmd.Flags()
	f.StringVarP(&flagServerURL, "server", "s", "", "signaling server websocket URL (default "+config.DefaultServerURL+")")
	f.StringVarP(&flagPassword, "password", "p", "", "password shared by the other peer")
	f.StringVar(&flagSTUN, "stun", "", "STUN server URL (default "+config.DefaultSTUN+")")
	f.DurationVar(&flagTimeout, "timeout", 2*time.Minute, "give up after this long")
}

func runPeer(ctx context.Context, cfg *config.Config, password string) error {
	sp := ui.StartConnecting("Connecting to " + cfg.ServerURL)
	client := peer.NewClient(cfg.ServerURL)
	err := client.Connect(ctx)
	sp.Stop()
	if err != nil {
		return err
	}
	defer client.Close()

	handler := peer.NewHandler(client)
	go handler.Start()

	var issued string
	select {
	case issued = <-handler.Password:
	case <-handler.Closed:
		return peer.NewError("wait for password", peer.ErrConnectionClosed)
	case <-ctx.Done():
		return peer.WrapError("wait for password", peer.ErrTimeout, ctx.Err().Error())
	}

	if password == "" {
		fmt.Println(ui.PasswordBox(issued))
	} else {
		ui.PrintInfof("Joining password %s", ui.BoldStyle.Render(password))
	}

	stun := cfg.GetSTUNServers()
	if len(stun) == 0 {
		ui.PrintWarning("No STUN server configured, only host candidates will be offered")
	}

	session, err := peer.NewSession(client, handler, stun, log.Logger)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := client.Request(password); err != nil {
		return err
	}

	sp = ui.StartWaiting("Waiting for the other peer...")
	session.OnPhase(func(p peer.Phase) {
		sp.SetMessage(phaseMessages[p])
	})
	result, err := session.Run(ctx)
	sp.Stop()
	if err != nil {
		return err
	}

	role := "answerer"
	if result.Initiator {
		role = "offerer"
	}
	ui.PrintSuccessf("Data channel open as %s, round trip %s", role, ui.BoldStyle.Render(result.RoundTrip.Round(time.Microsecond).String()))

	time.Sleep(closeGrace)
	return nil
}

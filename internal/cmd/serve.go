package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/config"
	"github.com/BioHazard786/rendezvous/internal/server"
)

var (
	flagAddr            string
	flagWSPath          string
	flagPasswordDigits  int
	flagSendQueue       int
	flagMaxMessageBytes int64
	flagPingInterval    = config.DefaultPingInterval
	flagPongWait        = config.DefaultPongWait
	flagShutdownTimeout = config.DefaultShutdownTimeout
	flagAllowedOrigins  []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling server",
	Long: `Run the signaling server.

Every websocket client is issued a password. Two clients that send a
ConnectionRequest for the same password are paired and their offers,
answers and ICE candidates are relayed between them.

Examples:
  rendezvous serve
  rendezvous serve --addr :9000 --ws-path /ws
  RENDEZVOUS_PASSWORD_DIGITS=6 rendezvous serve`,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := config.Options{
			ConfigFile:     flagConfigFile,
			Addr:           flagAddr,
			WSPath:         flagWSPath,
			AllowedOrigins: flagAllowedOrigins,
		}
		flags := cmd.Flags()
		if flags.Changed("password-digits") {
			opts.PasswordDigits = &flagPasswordDigits
		}
		if flags.Changed("send-queue") {
			opts.SendQueue = &flagSendQueue
		}
		if flags.Changed("max-message-bytes") {
			opts.MaxMessageBytes = &flagMaxMessageBytes
		}
		if flags.Changed("ping-interval") {
			opts.PingInterval = &flagPingInterval
		}
		if flags.Changed("pong-wait") {
			opts.PongWait = &flagPongWait
		}
		if flags.Changed("shutdown-timeout") {
			opts.ShutdownTimeout = &flagShutdownTimeout
		}

		cfg, err := config.Load(opts)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg, log.Logger)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(cmd.Context())
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&flagAddr, "addr", "", "listen address (default "+config.DefaultAddr+")")
	f.StringVar(&flagWSPath, "ws-path", "", "websocket route (default "+config.DefaultWSPath+")")
	f.IntVar(&flagPasswordDigits, "password-digits", config.DefaultPasswordDigits, "digits in issued passwords")
	f.IntVar(&flagSendQueue, "send-queue", config.DefaultSendQueue, "outbound envelopes buffered per connection")
	f.Int64Var(&flagMaxMessageBytes, "max-message-bytes", config.DefaultMaxMessageBytes, "largest accepted frame")
	f.DurationVar(&flagPingInterval, "ping-interval", config.DefaultPingInterval, "keepalive ping period, 0 disables")
	f.DurationVar(&flagPongWait, "pong-wait", config.DefaultPongWait, "read deadline extended by each pong, 0 disables")
	f.DurationVar(&flagShutdownTimeout, "shutdown-timeout", config.DefaultShutdownTimeout, "graceful shutdown limit")
	f.StringSliceVar(&flagAllowedOrigins, "allowed-origin", nil, "allowed websocket origins (default all)")
}

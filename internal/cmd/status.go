package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/rendezvous/internal/signaling"
	"github.com/BioHazard786/rendezvous/internal/ui"
)

var flagStatusURL string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show live counters of a running server",
	Long: `Fetch /stats from a running signaling server and print it as a table.

Examples:
  rendezvous status
  rendezvous status --url http://signal.example.com:8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := fetchStats(cmd, flagStatusURL)
		if err != nil {
			return err
		}

		fmt.Println(ui.TitleStyle.Render("Signaling server " + flagStatusURL))
		fmt.Println(ui.StatsTable([]ui.StatsRow{
			{Name: "Connections", Value: stats.Connections},
			{Name: "Sessions", Value: stats.Sessions},
			{Name: "Waiting", Value: stats.Waiting},
			{Name: "Paired", Value: stats.Paired},
			{Name: "Reserved passwords", Value: stats.Reserved},
		}))
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVarP(&flagStatusURL, "url", "u", "http://localhost:8080", "server base URL")
}

func fetchStats(cmd *cobra.Command, baseURL string) (*signaling.Stats, error) {
	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(baseURL, "/")+"/stats", nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch stats: unexpected status %s", resp.Status)
	}

	var stats signaling.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &stats, nil
}

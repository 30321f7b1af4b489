package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/purplefaucet/purple-faucet/internal/api"
	"github.com/purplefaucet/purple-faucet/internal/config"
)

const fundOwnerTimeout = 5 * time.Minute

var serverURL string

// FundOwnerCmd asks a running server to top up the owner. It never writes to
// the database itself.
func FundOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund-owner",
		Short: "Tops up the owner wallet from the pool through the running server",
		Args:  cobra.ExactArgs(0),
		RunE:  fundOwner,
	}
	cmd.Flags().StringVar(&serverURL, "server-url", "", "faucet api base url (defaults to the configured server address)")

	return cmd
}

func fundOwner(cmd *cobra.Command, args []string) error {
	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return fmt.Errorf("error while loading config file: %w", err)
	}

	base := serverURL
	if base == "" {
		base = localServerURL(&cfg.Server)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, base+"/v1/faucet/fund-owner", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cfg.Server.OwnerAPIKey)

	client := &http.Client{Timeout: fundOwnerTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach faucet server at %s: %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.ErrorCode == "" {
			return fmt.Errorf("fund-owner failed with status %d", resp.StatusCode)
		}
		return fmt.Errorf("fund-owner failed: %s: %s", apiErr.ErrorCode, apiErr.Message)
	}

	var out api.AmountResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("unexpected fund-owner response: %w", err)
	}
	log.Info().Str("amount", out.Amount.String()).Msg("owner funded")

	return nil
}

// localServerURL turns the listen address into one a local client can dial.
func localServerURL(cfg *config.ServerConfig) string {
	host := cfg.Host
	if ip := net.ParseIP(host); ip != nil && ip.IsUnspecified() {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

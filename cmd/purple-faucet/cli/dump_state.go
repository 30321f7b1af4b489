package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/purplefaucet/purple-faucet/internal/config"
	"github.com/purplefaucet/purple-faucet/internal/db"
)

var eventLimit int64

type stateDump struct {
	Owner               string      `yaml:"owner"`
	Paused              bool        `yaml:"paused"`
	PoolBalance         string      `yaml:"pool_balance"`
	PayoutAmount        string      `yaml:"payout_amount"`
	LockDuration        string      `yaml:"lock_duration"`
	PayoutCount         uint64      `yaml:"payout_count"`
	TotalPaidOut        string      `yaml:"total_paid_out"`
	TotalFunded         string      `yaml:"total_funded"`
	UpdatedAt           time.Time   `yaml:"updated_at"`
	LockedRecipients    int         `yaml:"locked_recipients"`
	LastProcessedHeight uint64      `yaml:"last_processed_height"`
	RecentEvents        []eventDump `yaml:"recent_events"`
}

type eventDump struct {
	Type      string    `yaml:"type"`
	Address   string    `yaml:"address"`
	Amount    string    `yaml:"amount"`
	Timestamp time.Time `yaml:"timestamp"`
}

// DumpStateCmd prints the persisted faucet state. It only reads from the
// database and is safe to run next to a live server.
func DumpStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-state",
		Short: "Prints the persisted faucet state and recent events as yaml",
		Args:  cobra.ExactArgs(0),
		RunE:  dumpState,
	}
	cmd.Flags().Int64Var(&eventLimit, "events", 20, "number of recent events to include")

	return cmd
}

func dumpState(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return fmt.Errorf("error while loading config file: %w", err)
	}

	dbClient, err := db.New(ctx, cfg.Db)
	if err != nil {
		return fmt.Errorf("error while creating db client: %w", err)
	}
	defer dbClient.Disconnect(ctx) //nolint:errcheck

	state, err := dbClient.GetFaucetState(ctx)
	if err != nil {
		if db.IsNotFoundError(err) {
			return fmt.Errorf("faucet state was never persisted")
		}
		return err
	}
	locks, err := dbClient.GetRecipientLocks(ctx)
	if err != nil {
		return err
	}
	height, err := dbClient.GetLastProcessedHeight(ctx)
	if err != nil {
		return err
	}
	events, err := dbClient.GetRecentEvents(ctx, eventLimit)
	if err != nil {
		return err
	}

	dump := stateDump{
		Owner:               state.Owner,
		Paused:              state.Paused,
		PoolBalance:         state.PoolBalance,
		PayoutAmount:        state.PayoutAmount,
		LockDuration:        state.LockDuration,
		PayoutCount:         state.PayoutCount,
		TotalPaidOut:        state.TotalPaidOut,
		TotalFunded:         state.TotalFunded,
		UpdatedAt:           state.UpdatedAt,
		LockedRecipients:    len(locks),
		LastProcessedHeight: height,
		RecentEvents:        make([]eventDump, 0, len(events)),
	}
	for _, e := range events {
		dump.RecentEvents = append(dump.RecentEvents, eventDump{
			Type:      e.Type,
			Address:   e.Address,
			Amount:    e.Amount,
			Timestamp: e.Timestamp,
		})
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(dump); err != nil {
		return err
	}
	return enc.Close()
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/frahmantamala/instrumentalist-payouts/internal/auth"
	"github.com/frahmantamala/instrumentalist-payouts/internal/batch"
	"github.com/frahmantamala/instrumentalist-payouts/internal/transfer"
	"github.com/spf13/cobra"
)

var payoutCmd = &cobra.Command{
	Use:   "payout",
	Short: "Operator payout commands",
	Long:  `Inspect the payout balance, run batches and issue operator tokens from the command line.`,
}

var payoutBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the available payout balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			b, err := deps.Balance.GetBalance(ctx)
			if err != nil {
				return err
			}
			return printJSON(b)
		})
	},
}

var payoutProcessCmd = &cobra.Command{
	Use:   "process [payment-id]",
	Short: "Pay out one approved payment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid payment id %q", args[0])
		}
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			outcome, err := deps.Orchestrator.ProcessPayment(ctx, id, transfer.ProcessRequest{
				Method:          payoutMethod,
				ReferenceNumber: payoutReference,
				Actor:           payoutActor,
			})
			if err != nil {
				return err
			}
			return printJSON(outcome)
		})
	},
}

var payoutBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Approve or process many payments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(payoutIDs)
		if err != nil {
			return err
		}
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			result, err := deps.Batch.RunBatch(ctx, ids, batch.Operation{
				Kind:            payoutOperation,
				Actor:           payoutActor,
				Method:          payoutMethod,
				ReferenceNumber: payoutReference,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var payoutSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count payments by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDependencies(func(ctx context.Context, deps *Dependencies) error {
			counts, err := deps.Reports.CountByStatus(ctx)
			if err != nil {
				return err
			}
			total, err := deps.Reports.PaidGatewayTotal(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{
				"by_status":          counts,
				"paid_gateway_total": total,
			})
		})
	},
}

var payoutTokenCmd = &cobra.Command{
	Use:   "token [operator-id]",
	Short: "Issue a bearer token for an operator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		verifier, err := auth.NewTokenVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, payoutTokenTTL)
		if err != nil {
			return err
		}
		token, err := verifier.GenerateToken(args[0], payoutOperatorName)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

var (
	payoutActor        string
	payoutMethod       string
	payoutReference    string
	payoutOperation    string
	payoutIDs          string
	payoutOperatorName string
	payoutTokenTTL     = auth.DefaultTokenTTL
)

func withDependencies(run func(ctx context.Context, deps *Dependencies) error) error {
	cfg, logger := mustLoad()
	ctx := context.Background()

	deps, err := initializeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	return run(ctx, deps)
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid payment id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	for _, c := range []*cobra.Command{payoutProcessCmd, payoutBatchCmd} {
		c.Flags().StringVar(&payoutActor, "actor", "cli", "operator recorded on the payments")
		c.Flags().StringVar(&payoutMethod, "method", "gateway_transfer", "payout method")
		c.Flags().StringVar(&payoutReference, "reference", "", "external reference number for manual payouts")
	}
	payoutBatchCmd.Flags().StringVar(&payoutOperation, "op", batch.OperationProcess, "batch operation: approve or process")
	payoutBatchCmd.Flags().StringVar(&payoutIDs, "ids", "", "comma separated payment ids")
	_ = payoutBatchCmd.MarkFlagRequired("ids")

	payoutTokenCmd.Flags().StringVar(&payoutOperatorName, "name", "", "operator display name")
	payoutTokenCmd.Flags().DurationVar(&payoutTokenTTL, "ttl", auth.DefaultTokenTTL, "token lifetime")

	payoutCmd.AddCommand(payoutBalanceCmd, payoutProcessCmd, payoutBatchCmd, payoutSummaryCmd, payoutTokenCmd)
	rootCmd.AddCommand(payoutCmd)
}

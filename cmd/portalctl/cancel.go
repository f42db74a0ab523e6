package main

import (
	"fmt"

	"order-portal/internal/service"

	"github.com/spf13/cobra"
)

func cancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel [order-id]",
		Short: "Request cancellation of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason, _ := cmd.Flags().GetString("reason")
			retries, _ := cmd.Flags().GetInt("retries")

			portal, err := loadPortal()
			if err != nil {
				return err
			}
			defer portal.Close()

			snapshot := portal.Cancels.Submit(cmd.Context(), args[0], reason)
			for i := 0; i < retries && snapshot.Notification.AllowRetry; i++ {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s Retrying...\n", snapshot.Notification.Message)
				if snapshot, err = portal.Cancels.Retry(cmd.Context(), args[0]); err != nil {
					return err
				}
			}

			if wantJSON(cmd) {
				return printJSON(cmd, snapshot)
			}
			fmt.Fprintln(cmd.OutOrStdout(), snapshot.Notification.Message)
			if snapshot.State != service.CancelNotifiedSuccess {
				return fmt.Errorf("order %s was not cancelled", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringP("reason", "r", "", "Cancellation reason sent to the backend")
	cmd.Flags().Int("retries", 0, "Retry retryable rejections this many times")

	return cmd
}

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"order-portal/internal/service"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [order-id]",
		Short: "Follow an order's status until it settles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")

			portal, err := loadPortal()
			if err != nil {
				return err
			}
			defer portal.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := portal.Reconciler.Open(ctx, args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			var deadline <-chan time.Time
			if timeout > 0 {
				timer := time.NewTimer(timeout)
				defer timer.Stop()
				deadline = timer.C
			}

			recheck := time.NewTicker(time.Second)
			defer recheck.Stop()

			last := session.View()
			printStatusLine(cmd, last)
			for {
				if orderPolls, paymentPolls := session.Polling(); !orderPolls && !paymentPolls {
					fmt.Fprintln(cmd.OutOrStdout(), "Order settled.")
					return nil
				}

				select {
				case <-ctx.Done():
					return nil
				case <-deadline:
					return fmt.Errorf("order %s did not settle within %s", args[0], timeout)
				case <-session.Updates():
					view := session.View()
					if view.OrderStatus != last.OrderStatus || view.PaymentStatus != last.PaymentStatus {
						printStatusLine(cmd, view)
					}
					last = view
				case <-recheck.C:
				}
			}
		},
	}

	cmd.Flags().Duration("timeout", 0, "Give up after this long (0 waits forever)")

	return cmd
}

func printStatusLine(cmd *cobra.Command, view service.OrderView) {
	if wantJSON(cmd) {
		_ = printJSON(cmd, view)
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s  order=%s payment=%s\n",
		time.Now().Format("15:04:05"), view.OrderStatus, view.PaymentStatus)
}

package main

import (
	"fmt"
	"text/tabwriter"

	"order-portal/internal/models"
	"order-portal/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders the way the dashboard shows them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := loadPortal()
			if err != nil {
				return err
			}
			defer portal.Close()

			var q service.DashboardQuery
			q.Search, _ = cmd.Flags().GetString("search")
			q.Status, _ = cmd.Flags().GetString("status")
			q.Page, _ = cmd.Flags().GetInt("page")

			page, err := portal.Orders.Dashboard(cmd.Context(), q)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd, page)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCUSTOMER\tSTATUS\tTOTAL\tCREATED\tDESCRIPTION")
			for _, o := range page.Orders {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					o.DisplayID, o.UserName, o.Status, o.TotalAmount.StringFixed(2),
					o.CreatedAt.Format("2006-01-02 15:04"), o.OrderDescription)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d/%d, %d orders\n", page.Page, page.TotalPages, page.TotalOrders)
			return nil
		},
	}

	cmd.Flags().StringP("search", "s", "", "Match id, customer or description")
	cmd.Flags().String("status", service.StatusFilterAll, "Filter by order status")
	cmd.Flags().IntP("page", "p", 1, "Page number")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [order-id]",
		Short: "Show an order with its payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			portal, err := loadPortal()
			if err != nil {
				return err
			}
			defer portal.Close()

			session, err := portal.Reconciler.Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer session.Close()

			view := session.View()
			if wantJSON(cmd) {
				return printJSON(cmd, view)
			}
			printView(cmd, view)
			return nil
		},
	}
}

func printView(cmd *cobra.Command, view service.OrderView) {
	out := cmd.OutOrStdout()
	o := view.Order

	fmt.Fprintf(out, "Order %s\n", o.DisplayID())
	fmt.Fprintf(out, "  Customer:   %s <%s>\n", o.UserName, o.UserEmail)
	fmt.Fprintf(out, "  Status:     %s\n", view.OrderStatus)
	fmt.Fprintf(out, "  Total:      $%s\n", o.TotalAmount.StringFixed(2))
	fmt.Fprintf(out, "  Created:    %s\n", o.CreatedAt.Format("2006-01-02 15:04:05"))
	if o.ShippingAddress != "" {
		fmt.Fprintf(out, "  Ship to:    %s\n", o.ShippingAddress)
	}
	fmt.Fprintf(out, "  Items:      %s\n", o.OrderDescription)

	switch {
	case view.PaymentError != "":
		fmt.Fprintf(out, "Payment: unavailable (%s)\n", view.PaymentError)
	case view.Payment == nil:
		fmt.Fprintln(out, "Payment: none yet")
	default:
		p := view.Payment
		fmt.Fprintf(out, "Payment %d\n", p.ID)
		fmt.Fprintf(out, "  Status:     %s\n", view.PaymentStatus)
		fmt.Fprintf(out, "  Method:     %s\n", p.PaymentMethod)
		fmt.Fprintf(out, "  Reference:  %s\n", p.TransactionReference)
		if p.FailureReason != nil {
			fmt.Fprintf(out, "  Failure:    %s\n", *p.FailureReason)
		}
	}
	if view.CanCancel {
		fmt.Fprintln(out, "\nThis order can be cancelled.")
	}
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an order",
		Long: `Create an order. Line items are given as name:quantity:price and are
encoded into the order description; without items --description and
--total are sent as they are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			req := &models.CreateOrderRequest{}
			req.UserID, _ = flags.GetString("user-id")
			req.UserName, _ = flags.GetString("name")
			req.UserEmail, _ = flags.GetString("email")
			req.ShippingAddress, _ = flags.GetString("address")
			req.OrderDescription, _ = flags.GetString("description")

			total, _ := flags.GetString("total")
			if total != "" {
				amount, err := decimal.NewFromString(total)
				if err != nil {
					return fmt.Errorf("invalid total %q: %w", total, err)
				}
				req.TotalAmount = amount
			}

			rawItems, _ := flags.GetStringArray("item")
			items, err := parseItems(rawItems)
			if err != nil {
				return err
			}

			portal, err := loadPortal()
			if err != nil {
				return err
			}
			defer portal.Close()

			var confirmation *models.OrderConfirmation
			if len(items) > 0 {
				confirmation, err = portal.Orders.CreateOrderFromItems(cmd.Context(), req, items)
			} else {
				confirmation, err = portal.Orders.CreateOrder(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			if wantJSON(cmd) {
				return printJSON(cmd, confirmation)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created order %s (%s, $%s)\n",
				confirmation.DisplayID(), confirmation.Status, confirmation.TotalAmount.StringFixed(2))
			return nil
		},
	}

	cmd.Flags().String("user-id", "", "Customer id")
	cmd.Flags().String("name", "", "Customer name")
	cmd.Flags().String("email", "", "Customer email")
	cmd.Flags().String("address", "", "Shipping address")
	cmd.Flags().String("description", "", "Order description")
	cmd.Flags().String("total", "", "Order total")
	cmd.Flags().StringArrayP("item", "i", nil, "Line item as name:quantity:price (repeatable)")

	return cmd
}

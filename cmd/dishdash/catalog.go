package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/eshaffer321/dishdash-go/pkg/dishdash"
)

func newMealsCmd(a *app) *cobra.Command {
	var (
		cuisine, cook, search string
		maxPrice              float64
		limit, offset         int
		availableOnly, all    bool
	)

	cmd := &cobra.Command{
		Use:   "meals",
		Short: "Browse meals",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := a.client.Meals.Query()
			if cuisine != "" {
				q = q.WithCuisine(cuisine)
			}
			if cook != "" {
				q = q.WithCook(cook)
			}
			if maxPrice > 0 {
				q = q.MaxPrice(maxPrice)
			}
			if search != "" {
				q = q.Search(search)
			}
			if availableOnly {
				q = q.AvailableOnly()
			}

			if all {
				var meals []*dishdash.Meal
				mealCh, errCh := q.Stream(cmd.Context())
				for m := range mealCh {
					meals = append(meals, m)
				}
				if err := <-errCh; err != nil {
					return err
				}
				return renderMeals(cmd, meals, len(meals))
			}

			page, err := q.Limit(limit).Offset(offset).Execute(cmd.Context())
			if err != nil {
				return err
			}
			if err := renderMeals(cmd, page.Meals, page.TotalCount); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "More results: --offset %d\n", page.NextOffset)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cuisine, "cuisine", "", "Only this cuisine")
	cmd.Flags().StringVar(&cook, "cook", "", "Only meals by this cook ID")
	cmd.Flags().StringVar(&search, "search", "", "Free text search")
	cmd.Flags().Float64Var(&maxPrice, "max-price", 0, "Upper price bound")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	cmd.Flags().BoolVar(&availableOnly, "available", false, "Only meals that can be ordered now")
	cmd.Flags().BoolVar(&all, "all", false, "Fetch every page")

	cmd.AddCommand(&cobra.Command{
		Use:   "get MEAL_ID",
		Short: "Show one meal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.client.Meals.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", m.Name, m.ID)
			fmt.Fprintf(out, "Cuisine:   %s\n", m.Cuisine)
			fmt.Fprintf(out, "Price:     %s\n", money(m.Price, m.Currency))
			fmt.Fprintf(out, "Available: %t\n", m.Available)
			if m.Cook != nil {
				fmt.Fprintf(out, "Cook:      %s\n", m.Cook.Name)
			}
			if m.Description != "" {
				fmt.Fprintln(out, m.Description)
			}
			return nil
		},
	})
	return cmd
}

func renderMeals(cmd *cobra.Command, meals []*dishdash.Meal, total int) error {
	if len(meals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), pterm.Info.Sprint("No meals found"))
		return nil
	}

	data := pterm.TableData{{"ID", "Name", "Cuisine", "Price", "Cook", "Available"}}
	for _, m := range meals {
		cook := ""
		if m.Cook != nil {
			cook = m.Cook.Name
		}
		data = append(data, []string{m.ID, m.Name, m.Cuisine, money(m.Price, m.Currency), cook, strconv.FormatBool(m.Available)})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	fmt.Fprintf(cmd.OutOrStdout(), "Showing %d of %d meals\n", len(meals), total)
	return nil
}

func newOrdersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, place and track orders",
	}

	var status string
	var limit, offset int
	list := &cobra.Command{
		Use:   "list",
		Short: "List your orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := a.client.Orders.List(cmd.Context(), &dishdash.ListOrdersParams{
				Status: dishdash.OrderStatus(status),
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}
			if len(page.Orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), pterm.Info.Sprint("No orders yet"))
				return nil
			}

			data := pterm.TableData{{"ID", "Status", "Items", "Total", "Delivery"}}
			for _, o := range page.Orders {
				data = append(data, []string{o.ID, string(o.Status), strconv.Itoa(len(o.Items)), money(o.Total, o.Currency), o.DeliveryDate.String()})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "Only orders in this status")
	list.Flags().IntVar(&limit, "limit", 20, "Page size")
	list.Flags().IntVar(&offset, "offset", 0, "Page offset")

	get := &cobra.Command{
		Use:   "get ORDER_ID",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.client.Orders.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printOrder(cmd, o)
			return nil
		},
	}

	var (
		meals         []string
		address, note string
		deliveryDate  string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Place an order",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(meals)
			if err != nil {
				return err
			}
			params := &dishdash.CreateOrderParams{Items: items, DeliveryAddress: address, Notes: note}
			if deliveryDate != "" {
				d, err := time.Parse("2006-01-02", deliveryDate)
				if err != nil {
					return fmt.Errorf("invalid --date %q, want YYYY-MM-DD", deliveryDate)
				}
				params.DeliveryDate = &d
			}

			o, err := a.client.Orders.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Order %s placed", o.ID))
			printOrder(cmd, o)
			return nil
		},
	}
	create.Flags().StringArrayVar(&meals, "meal", nil, "MEAL_ID[:QTY], repeatable")
	create.Flags().StringVar(&address, "address", "", "Delivery address")
	create.Flags().StringVar(&deliveryDate, "date", "", "Delivery date (YYYY-MM-DD)")
	create.Flags().StringVar(&note, "note", "", "Note for the cook")
	_ = create.MarkFlagRequired("meal")
	_ = create.MarkFlagRequired("address")

	cancel := &cobra.Command{
		Use:   "cancel ORDER_ID",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.client.Orders.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Order %s is %s", o.ID, o.Status))
			return nil
		},
	}

	var timeout time.Duration
	track := &cobra.Command{
		Use:   "track ORDER_ID",
		Short: "Follow an order until it is delivered or cancelled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, err := a.client.Orders.Track(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %s, currently %s\n", tracker.OrderID(), tracker.Status())

			o, err := tracker.Wait(cmd.Context(), timeout)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Path:", joinStatuses(tracker.Transitions()))
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprintf("Order %s %s", o.ID, o.Status))
			return nil
		},
	}
	track.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Give up after this long (0 waits forever)")

	cmd.AddCommand(list, get, create, cancel, track)
	return cmd
}

// parseItems reads MEAL_ID[:QTY] values
func parseItems(values []string) ([]dishdash.OrderItem, error) {
	items := make([]dishdash.OrderItem, 0, len(values))
	for _, v := range values {
		id, qty, found := strings.Cut(v, ":")
		item := dishdash.OrderItem{MealID: strings.TrimSpace(id), Quantity: 1}
		if item.MealID == "" {
			return nil, fmt.Errorf("invalid --meal %q", v)
		}
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in --meal %q", v)
			}
			item.Quantity = n
		}
		items = append(items, item)
	}
	return items, nil
}

func printOrder(cmd *cobra.Command, o *dishdash.Order) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Order:    %s\n", o.ID)
	fmt.Fprintf(out, "Status:   %s\n", o.Status)
	fmt.Fprintf(out, "Total:    %s\n", money(o.Total, o.Currency))
	fmt.Fprintf(out, "Address:  %s\n", o.DeliveryAddress)
	if !o.DeliveryDate.IsZero() {
		fmt.Fprintf(out, "Delivery: %s\n", o.DeliveryDate)
	}
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = it.MealID
		}
		fmt.Fprintf(out, "  %dx %s\n", it.Quantity, name)
	}
}

func joinStatuses(statuses []dishdash.OrderStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}

func money(amount float64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%.2f %s", amount, currency)
}

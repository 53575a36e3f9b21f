package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/eightbitcafe/cart_sdk_go/pkg/cart"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			printView(cmd.OutOrStdout(), rt.Store.View())
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add [name] [price]",
		Short: "Add one unit of a product",
		Long: `Adds one unit of the named product. A product already in the cart keeps
the price and category it was first added with.`,
		Example: `  cafecart add Latte 4.50 --category coffee`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", args[1], err)
			}
			if price.IsNegative() {
				return fmt.Errorf("price must not be negative")
			}
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.Store.AddItem(cmd.Context(), args[0], price, cart.ParseCategory(category))
			printView(cmd.OutOrStdout(), rt.Store.View())
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "menu category (coffee, non-coffee, pastries)")
	return cmd
}

func newQtyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "qty [name] [delta]",
		Short: "Change the quantity of a product",
		Long: `Adds delta to the product's quantity. A quantity that drops to zero or
below removes the product. Put -- before a negative delta.`,
		Example: `  cafecart qty Latte 2
  cafecart qty -- Latte -1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", args[1], err)
			}
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.Store.ChangeQuantity(cmd.Context(), args[0], delta)
			printView(cmd.OutOrStdout(), rt.Store.View())
			return nil
		},
	}
}

func newClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.Store.Clear(cmd.Context())
			printView(cmd.OutOrStdout(), rt.Store.View())
			return nil
		},
	}
}

func newOrderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "Place the order and empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			out := cmd.OutOrStdout()
			order, err := rt.Store.PlaceOrder(cmd.Context())
			if errors.Is(err, cart.ErrEmptyCart) {
				fmt.Fprintln(out, cart.EmptyCartMessage)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Order %s placed\n", order.ID)
			for _, l := range order.Lines {
				fmt.Fprintln(out, l.String())
			}
			fmt.Fprintln(out, cart.FormatCount(order.TotalQuantity))
			fmt.Fprintln(out, cart.FormatTotal(order.Total))
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the cart again whenever it changes",
		Long: `Prints the cart, then reprints it every time another process writes to
the slot, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			views := make(chan cart.View, 1)
			cancel := rt.Store.Subscribe(func(v cart.View) {
				for {
					select {
					case views <- v:
						return
					default:
					}
					select {
					case <-views:
					default:
					}
				}
			})
			defer cancel()

			printView(out, rt.Store.View())
			for {
				select {
				case <-ctx.Done():
					return nil
				case v := <-views:
					fmt.Fprintln(out)
					printView(out, v)
				}
			}
		},
	}
}

func printView(w io.Writer, v cart.View) {
	if v.Empty() {
		fmt.Fprintln(w, cart.EmptyCartMessage)
		return
	}
	for _, l := range v.Lines {
		fmt.Fprintln(w, l.String())
	}
	fmt.Fprintln(w, cart.FormatCount(v.TotalQuantity))
	fmt.Fprintln(w, cart.FormatTotal(v.TotalPrice))
	for _, cat := range sortedCategories(v.ByCategory) {
		fmt.Fprintf(w, "%s %s\n", cat, cart.FormatCount(v.ByCategory[cat]))
	}
}

func sortedCategories(m map[cart.Category]int) []cart.Category {
	cats := make([]cart.Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	slices.Sort(cats)
	return cats
}

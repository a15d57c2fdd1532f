package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"boq/internal/core"
	"boq/internal/services"
)

// resolveItem accepts an item id or a 1-based row number from "boqctl print".
func resolveItem(s core.Snapshot, ref string) (core.ItemID, error) {
	if id, ok := core.ParseItemID(ref); ok {
		return id, nil
	}
	row, err := strconv.Atoi(ref)
	if err != nil {
		return "", fmt.Errorf("%q is neither an item id nor a row number", ref)
	}
	items := s.Items()
	if row < 1 || row > len(items) {
		return "", fmt.Errorf("row %d out of range (ledger has %d items)", row, len(items))
	}
	return items[row-1].ID, nil
}

func findItem(s core.Snapshot, id core.ItemID) (core.Item, bool) {
	for _, it := range s.Items() {
		if it.ID == id {
			return it, true
		}
	}
	return core.Item{}, false
}

func addCmd() *cobra.Command {
	var (
		category, description, unit, price, mode string
		quantity, width, length, height          string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item, entering the quantity directly or as area/volume dimensions",
		Example: `  boqctl add --category Concrete --description Footing --unit m3 --price 1500 --quantity 12
  boqctl add --category Earthwork --description Fill --unit m2 --price 5 --mode area --width 3 --length 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calcMode, err := core.ParseCalcMode(mode)
			if err != nil {
				return err
			}
			unitPrice, err := core.ParseNumber(price)
			if err != nil {
				return &core.ValidationError{Field: "price", Err: core.ErrInvalidUnitPrice}
			}

			var dims core.Dimensions
			for _, f := range []struct {
				name string
				raw  string
				dst  **float64
			}{
				{"quantity", quantity, &dims.Quantity},
				{"width", width, &dims.Width},
				{"length", length, &dims.Length},
				{"height", height, &dims.Height},
			} {
				if *f.dst, err = core.ParseOptionalNumber(f.raw); err != nil {
					return &core.ValidationError{Field: f.name, Err: core.ErrNotANumber}
				}
			}

			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := svc.AddItem(cmd.Context(), services.AddItemRequest{
				Category:    category,
				Description: description,
				Unit:        unit,
				UnitPrice:   unitPrice,
				Mode:        calcMode,
				Dimensions:  dims,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Added item "+id.String()))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&description, "description", "", "item description")
	cmd.Flags().StringVar(&unit, "unit", "", "unit of measure")
	cmd.Flags().StringVar(&price, "price", "", "unit price")
	cmd.Flags().StringVar(&mode, "mode", string(core.ModeManual), "quantity mode (manual, area, volume)")
	cmd.Flags().StringVar(&quantity, "quantity", "", "quantity (manual mode)")
	cmd.Flags().StringVar(&width, "width", "", "width (area and volume modes)")
	cmd.Flags().StringVar(&length, "length", "", "length (area and volume modes)")
	cmd.Flags().StringVar(&height, "height", "", "height (volume mode)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("price")

	return cmd
}

func editCmd() *cobra.Command {
	var description, unit, price, quantity string

	cmd := &cobra.Command{
		Use:   "edit <item>",
		Short: "Replace description, unit, price or quantity of an item",
		Long: `Replace the given fields of an item; omitted flags keep their value.
Editing drops the quantity derivation note.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			snap := svc.Snapshot()
			id, err := resolveItem(snap, args[0])
			if err != nil {
				return err
			}
			current, ok := findItem(snap, id)
			if !ok {
				return &core.NotFoundError{ID: id}
			}

			edit := core.ItemEdit{
				Description: current.Description,
				Unit:        current.Unit,
				UnitPrice:   current.UnitPrice,
				Quantity:    current.Quantity,
			}
			if cmd.Flags().Changed("description") {
				edit.Description = description
			}
			if cmd.Flags().Changed("unit") {
				edit.Unit = unit
			}
			if cmd.Flags().Changed("price") {
				if edit.UnitPrice, err = core.ParseNumber(price); err != nil {
					return &core.ValidationError{Field: "price", Err: core.ErrInvalidUnitPrice}
				}
			}
			if cmd.Flags().Changed("quantity") {
				if edit.Quantity, err = core.ParseNumber(quantity); err != nil {
					return &core.ValidationError{Field: "quantity", Err: core.ErrInvalidQuantity}
				}
			}

			if err := svc.EditItem(cmd.Context(), id, edit); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Updated item "+id.String()))
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&unit, "unit", "", "new unit")
	cmd.Flags().StringVar(&price, "price", "", "new unit price")
	cmd.Flags().StringVar(&quantity, "quantity", "", "new quantity")

	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <item>",
		Aliases: []string{"rm"},
		Short:   "Delete an item; an emptied category disappears with it",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveItem(svc.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := svc.DeleteItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), SuccessStyle.Render("Deleted item "+id.String()))
			return nil
		},
	}
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <item> <row>",
		Short: "Move an item to another row; it joins the category of the block it lands in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("row must be a whole number: %q", args[1])
			}

			svc, cleanup, err := openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			id, err := resolveItem(svc.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if err := svc.MoveItem(cmd.Context(), id, row-1); err != nil {
				return err
			}
			return renderLedger(cmd.OutOrStdout(), svc.View())
		},
	}
}

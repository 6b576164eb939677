package main

import (
	"context"
	"fmt"

	"garagem/internal/app"
	"garagem/internal/garagem"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// vehicle command
var vehicleCmd = &cobra.Command{
	Use:   "vehicle",
	Short: "Manage vehicles",
}

var vehicleAddCmd = &cobra.Command{
	Use:   "add BRAND",
	Short: "Register a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		v := &garagem.Vehicle{Brand: args[0]}
		v.Model, _ = f.GetString("model")
		v.Year, _ = f.GetInt("year")
		v.LicensePlate, _ = f.GetString("plate")
		v.Color, _ = f.GetString("color")
		v.Fuel, _ = f.GetString("fuel")
		v.Mileage, _ = f.GetInt("mileage")
		v.Transmission, _ = f.GetString("transmission")
		v.Doors, _ = f.GetInt("doors")
		v.Observations, _ = f.GetString("notes")

		return run("AddVehicle", func(ctx context.Context, a *app.GarageApp) error {
			saved, err := a.AddVehicle(ctx, v)
			if err != nil {
				return err
			}
			fmt.Printf("Added %s  %s\n", saved.ID, saved.Name())
			return nil
		})
	},
}

var vehicleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List vehicles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("ListVehicles", func(ctx context.Context, a *app.GarageApp) error {
			vehicles, err := a.ListVehicles(ctx)
			if err != nil {
				return err
			}
			if len(vehicles) == 0 {
				fmt.Println("No vehicles.")
				return nil
			}
			for _, v := range vehicles {
				fmt.Printf("%s  %-25s  %4d  %-8s  %d km\n", v.ID, v.Name(), v.Year, v.LicensePlate, v.Mileage)
			}
			return nil
		})
	},
}

var vehicleDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a vehicle and its records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("DeleteVehicle", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.DeleteVehicle(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		})
	},
}

// maintenance command
var maintenanceCmd = &cobra.Command{
	Use:     "maintenance",
	Aliases: []string{"m"},
	Short:   "Manage maintenance records",
}

func maintenanceInput(cmd *cobra.Command) app.MaintenanceInput {
	f := cmd.Flags()
	var in app.MaintenanceInput
	in.VehicleID, _ = f.GetString("vehicle")
	in.Kind, _ = f.GetString("kind")
	in.Date, _ = f.GetString("date")
	in.Title, _ = f.GetString("title")
	in.TotalCost, _ = f.GetString("cost")
	in.Notes, _ = f.GetString("notes")
	if f.Changed("item") {
		in.Items, _ = f.GetStringArray("item")
	}
	return in
}

func addMaintenanceFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("vehicle", "", "Vehicle ID")
	f.String("kind", "", "scheduled or completed")
	f.String("date", "", "Due or completion date (YYYY-MM-DD)")
	f.String("title", "", "Short description")
	f.StringArray("item", nil, "Item as description=cost (repeatable)")
	f.String("cost", "", "Total cost when there are no items")
	f.String("notes", "", "Notes")
}

var maintenanceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a maintenance record",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := maintenanceInput(cmd)
		return run("AddMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			m, err := a.AddMaintenance(ctx, in)
			if err != nil {
				return err
			}
			printMaintenance(a, m)
			return nil
		})
	},
}

var maintenanceEditCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Change a maintenance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := maintenanceInput(cmd)
		return run("EditMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			m, err := a.EditMaintenance(ctx, args[0], in)
			if err != nil {
				return err
			}
			printMaintenance(a, m)
			return nil
		})
	},
}

var maintenanceCompleteCmd = &cobra.Command{
	Use:   "complete ID",
	Short: "Mark a maintenance as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("CompleteMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			m, err := a.CompleteMaintenance(ctx, args[0])
			if err != nil {
				return err
			}
			printMaintenance(a, m)
			return nil
		})
	},
}

var maintenanceDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a maintenance record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("DeleteMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.DeleteMaintenance(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		})
	},
}

var maintenanceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List maintenance records",
	RunE: func(cmd *cobra.Command, args []string) error {
		vehicleID, _ := cmd.Flags().GetString("vehicle")
		return run("ListMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			records, err := a.ListMaintenance(ctx, vehicleID)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No maintenance records.")
				return nil
			}
			for _, m := range records {
				printMaintenance(a, m)
			}
			return nil
		})
	},
}

var maintenanceUpcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "List scheduled maintenance due soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return run("UpcomingMaintenance", func(ctx context.Context, a *app.GarageApp) error {
			records, err := a.UpcomingMaintenance(ctx, days)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Printf("Nothing due in the next %d days.\n", days)
				return nil
			}
			for _, m := range records {
				printMaintenance(a, m)
			}
			return nil
		})
	},
}

var maintenanceStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show maintenance totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("MaintenanceStats", func(ctx context.Context, a *app.GarageApp) error {
			st, err := a.MaintenanceStats(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Total:      %d\n", st.Total)
			fmt.Printf("This month: %d\n", st.ThisMonth)
			fmt.Printf("Upcoming:   %d\n", st.Upcoming)
			fmt.Printf("Total cost: R$ %s\n", st.TotalCost.StringFixed(2))
			return nil
		})
	},
}

func printMaintenance(a *app.GarageApp, m *garagem.MaintenanceRecord) {
	due := ""
	if m.Kind == garagem.MaintenanceScheduled {
		switch d := a.DaysUntil(m); {
		case d < 0:
			due = fmt.Sprintf("  (%d days late)", -d)
		case d == 0:
			due = "  (today)"
		default:
			due = fmt.Sprintf("  (in %d days)", d)
		}
	}
	fmt.Printf("%s  %-9s  %s  %-20s  %-30s  R$ %10s%s\n",
		m.ID,
		m.Kind,
		m.DueDate.Format(dateLayout),
		m.VehicleName,
		m.Title,
		m.TotalCost.StringFixed(2),
		due,
	)
}

// expense command
var expenseCmd = &cobra.Command{
	Use:   "expense",
	Short: "Manage expenses",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record an expense",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		var in app.ExpenseInput
		in.VehicleID, _ = f.GetString("vehicle")
		in.Category, _ = f.GetString("category")
		in.Subcategory, _ = f.GetString("subcategory")
		in.Description, _ = f.GetString("description")
		in.Amount, _ = f.GetString("amount")
		in.Date, _ = f.GetString("date")
		in.Odometer, _ = f.GetInt("odometer")
		in.Notes, _ = f.GetString("notes")

		return run("AddExpense", func(ctx context.Context, a *app.GarageApp) error {
			e, err := a.AddExpense(ctx, in)
			if err != nil {
				return err
			}
			printExpense(e)
			return nil
		})
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		vehicleID, _ := cmd.Flags().GetString("vehicle")
		return run("ListExpenses", func(ctx context.Context, a *app.GarageApp) error {
			expenses, err := a.ListExpenses(ctx, vehicleID)
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				fmt.Println("No expenses.")
				return nil
			}
			for _, e := range expenses {
				printExpense(e)
			}
			return nil
		})
	},
}

var expenseDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run("DeleteExpense", func(ctx context.Context, a *app.GarageApp) error {
			if err := a.DeleteExpense(ctx, args[0]); err != nil {
				return err
			}
			fmt.Println("Deleted.")
			return nil
		})
	},
}

var expenseSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize spending over a period (default: this month)",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		return run("ExpenseSummary", func(ctx context.Context, a *app.GarageApp) error {
			s, err := a.ExpenseSummary(ctx, from, to)
			if err != nil {
				return err
			}
			fmt.Printf("Period:   %s .. %s\n", s.From, s.To)
			fmt.Printf("Total:    R$ %s (%d expenses)\n", s.Total.StringFixed(2), s.Count)
			fmt.Printf("Average:  R$ %s\n", s.Average.StringFixed(2))
			for _, c := range garagem.ExpenseCategories {
				if amount, ok := s.ByCategory[c]; ok {
					fmt.Printf("  %-12s R$ %s\n", c, amount.StringFixed(2))
				}
			}
			fmt.Printf("Previous: %s .. %s  R$ %s  (%s%%)\n",
				s.Comparison.PreviousFrom,
				s.Comparison.PreviousTo,
				s.Comparison.Previous.StringFixed(2),
				s.Comparison.PercentageChange.StringFixed(1),
			)
			return nil
		})
	},
}

func printExpense(e *garagem.Expense) {
	fmt.Printf("%s  %s  %-20s  %-12s  %-30s  R$ %10s\n",
		e.ID,
		e.Date.Format(dateLayout),
		e.VehicleName,
		e.Category,
		e.Description,
		e.Amount.StringFixed(2),
	)
}

func init() {
	vehicleCmd.AddCommand(vehicleAddCmd)
	vf := vehicleAddCmd.Flags()
	vf.String("model", "", "Model")
	vf.Int("year", 0, "Year")
	vf.String("plate", "", "License plate")
	vf.String("color", "", "Color")
	vf.String("fuel", "", "Fuel type")
	vf.Int("mileage", 0, "Odometer in km")
	vf.String("transmission", "", "Transmission")
	vf.Int("doors", 0, "Number of doors")
	vf.String("notes", "", "Observations")
	vehicleCmd.AddCommand(vehicleListCmd)
	vehicleCmd.AddCommand(vehicleDeleteCmd)

	maintenanceCmd.AddCommand(maintenanceAddCmd)
	addMaintenanceFlags(maintenanceAddCmd)
	maintenanceCmd.AddCommand(maintenanceEditCmd)
	addMaintenanceFlags(maintenanceEditCmd)
	maintenanceCmd.AddCommand(maintenanceCompleteCmd)
	maintenanceCmd.AddCommand(maintenanceDeleteCmd)
	maintenanceCmd.AddCommand(maintenanceListCmd)
	maintenanceListCmd.Flags().String("vehicle", "", "Only this vehicle")
	maintenanceCmd.AddCommand(maintenanceUpcomingCmd)
	maintenanceUpcomingCmd.Flags().IntP("days", "d", 30, "Look-ahead window in days")
	maintenanceCmd.AddCommand(maintenanceStatsCmd)

	expenseCmd.AddCommand(expenseAddCmd)
	ef := expenseAddCmd.Flags()
	ef.String("vehicle", "", "Vehicle ID")
	ef.String("category", "", "fuel, energy, maintenance, labor, insurance, tax or other")
	ef.String("subcategory", "", "Subcategory")
	ef.String("description", "", "Description")
	ef.String("amount", "", "Amount")
	ef.String("date", "", "Date (YYYY-MM-DD, default today)")
	ef.Int("odometer", 0, "Odometer in km")
	ef.String("notes", "", "Notes")
	expenseCmd.AddCommand(expenseListCmd)
	expenseListCmd.Flags().String("vehicle", "", "Only this vehicle")
	expenseCmd.AddCommand(expenseDeleteCmd)
	expenseCmd.AddCommand(expenseSummaryCmd)
	expenseSummaryCmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	expenseSummaryCmd.Flags().String("to", "", "Last day (YYYY-MM-DD)")
}

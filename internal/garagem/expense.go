package garagem

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ExpenseSummary aggregates expenses over an inclusive date range and
// compares them with the range of equal length just before it.
type ExpenseSummary struct {
	From       Date
	To         Date
	Total      decimal.Decimal
	Count      int
	Average    decimal.Decimal
	ByCategory map[ExpenseCategory]decimal.Decimal
	Comparison PeriodComparison
}

// PeriodComparison holds the previous period total. PercentageChange is
// zero when the previous period had no spending.
type PeriodComparison struct {
	PreviousFrom     Date
	PreviousTo       Date
	Current          decimal.Decimal
	Previous         decimal.Decimal
	PercentageChange decimal.Decimal
}

// AddExpense stores an expense for one of the current user's vehicles.
func (s *GarageService) AddExpense(ctx context.Context, e *Expense) (*Expense, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.ownedVehicle(user, e.VehicleID)
	if err != nil {
		return nil, err
	}

	if _, err := ParseExpenseCategory(string(e.Category)); err != nil {
		return nil, err
	}
	if !e.Amount.IsPositive() {
		return nil, &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if e.Date.IsZero() {
		return nil, &ValidationError{Field: "date", Reason: "required"}
	}
	if e.Odometer < 0 {
		return nil, &ValidationError{Field: "odometer", Reason: "cannot be negative"}
	}

	e.ID = s.idgen.New()
	e.UserID = user.ID
	e.VehicleName = vehicle.Name()
	e.Date = DateOf(e.Date).In(s.location)
	e.Description = strings.TrimSpace(e.Description)
	e.CreatedAt = s.clock.Now()

	if err := s.database.CreateExpense(e); err != nil {
		return nil, fmt.Errorf("creating expense: %w", err)
	}
	s.logger.Info("expense added", "expense", e.ID, "category", e.Category, "amount", e.Amount.StringFixed(2))
	return e, nil
}

// ListExpenses returns the current user's expenses, newest first. A
// non-empty vehicleID restricts the list to that vehicle.
func (s *GarageService) ListExpenses(ctx context.Context, vehicleID string) ([]*Expense, error) {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.database.ListExpensesByUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	if vehicleID == "" {
		return expenses, nil
	}

	out := expenses[:0]
	for _, e := range expenses {
		if e.VehicleID == vehicleID {
			out = append(out, e)
		}
	}
	return out, nil
}

// DeleteExpense removes one of the current user's expenses.
func (s *GarageService) DeleteExpense(ctx context.Context, id string) error {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	e, err := s.database.FindExpenseByID(id)
	if err != nil {
		return fmt.Errorf("finding expense: %w", err)
	}
	if e == nil {
		return fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if e.UserID != user.ID {
		return fmt.Errorf("expense %s: %w", id, ErrNotOwner)
	}
	if err := s.database.DeleteExpense(id); err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}
	return nil
}

// ExpenseSummary summarizes the current user's expenses between from and to,
// both inclusive.
func (s *GarageService) ExpenseSummary(ctx context.Context, from, to Date) (*ExpenseSummary, error) {
	span := DaysBetween(from, to)
	if span < 0 {
		return nil, &ValidationError{Field: "period", Reason: "from is after to"}
	}
	expenses, err := s.ListExpenses(ctx, "")
	if err != nil {
		return nil, err
	}

	prevTo := from.AddDays(-1)
	prevFrom := prevTo.AddDays(-span)

	summary := &ExpenseSummary{
		From:       from,
		To:         to,
		Total:      decimal.Zero,
		Average:    decimal.Zero,
		ByCategory: make(map[ExpenseCategory]decimal.Decimal, len(ExpenseCategories)),
		Comparison: PeriodComparison{PreviousFrom: prevFrom, PreviousTo: prevTo, Previous: decimal.Zero},
	}
	for _, c := range ExpenseCategories {
		summary.ByCategory[c] = decimal.Zero
	}

	for _, e := range expenses {
		d := DateOf(e.Date)
		switch {
		case inRange(d, from, to):
			summary.Total = summary.Total.Add(e.Amount)
			summary.Count++
			if cur, ok := summary.ByCategory[e.Category]; ok {
				summary.ByCategory[e.Category] = cur.Add(e.Amount)
			}
		case inRange(d, prevFrom, prevTo):
			summary.Comparison.Previous = summary.Comparison.Previous.Add(e.Amount)
		}
	}

	if summary.Count > 0 {
		summary.Average = summary.Total.Div(decimal.NewFromInt(int64(summary.Count))).Round(2)
	}
	summary.Comparison.Current = summary.Total
	summary.Comparison.PercentageChange = decimal.Zero
	if prev := summary.Comparison.Previous; prev.IsPositive() {
		summary.Comparison.PercentageChange = summary.Total.Sub(prev).Div(prev).Mul(hundred).Round(2)
	}
	return summary, nil
}

func inRange(d, from, to Date) bool {
	return DaysBetween(from, d) >= 0 && DaysBetween(d, to) >= 0
}

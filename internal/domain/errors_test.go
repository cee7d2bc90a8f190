package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/clinicshop/internal/domain"
)

func TestInsufficientStockErrorIs(t *testing.T) {
	err := domain.NewInsufficientStockError(domain.StockShortage{
		ItemID:    "item-1",
		ItemName:  "Bandage",
		Requested: 5,
		Available: 2,
	})

	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatal("typed error must match ErrInsufficientStock sentinel")
	}
	if !domain.IsInsufficientStock(fmt.Errorf("checkout: %w", err)) {
		t.Fatal("wrapped typed error must still match the sentinel")
	}

	var typed *domain.InsufficientStockError
	if !errors.As(fmt.Errorf("checkout: %w", err), &typed) {
		t.Fatal("errors.As must extract the typed error")
	}
	if len(typed.Shortages) != 1 || typed.Shortages[0].Available != 2 {
		t.Fatalf("unexpected shortages: %+v", typed.Shortages)
	}
}

func TestInsufficientStockErrorMessageNamesItems(t *testing.T) {
	err := domain.NewInsufficientStockError(
		domain.StockShortage{ItemID: "item-1", ItemName: "Bandage", Requested: 5, Available: 2},
		domain.StockShortage{ItemID: "item-2", Requested: 1, Available: 0},
	)

	msg := err.Error()
	if !strings.Contains(msg, "Bandage") {
		t.Fatalf("message must name the item: %s", msg)
	}
	// Без названия используется идентификатор.
	if !strings.Contains(msg, "item-2") {
		t.Fatalf("message must fall back to item id: %s", msg)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err        error
		notFound   bool
		validation bool
		conflict   bool
	}{
		{err: domain.ErrItemNotFound, notFound: true},
		{err: domain.ErrCartLineNotFound, notFound: true},
		{err: domain.ErrOrderNotFound, notFound: true},
		{err: domain.ErrNotificationNotFound, notFound: true},
		{err: domain.ErrPriceNegative, validation: true},
		{err: domain.ErrQuantityInvalid, validation: true},
		{err: domain.ErrItemInactive, validation: true},
		{err: domain.ErrItemHasOrderHistory, conflict: true},
		{err: domain.ErrItemExists, conflict: true},
		{err: domain.ErrEmptyCart},
		{err: domain.ErrInsufficientStock},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("op: %w", tc.err)
			if got := domain.IsNotFound(wrapped); got != tc.notFound {
				t.Fatalf("IsNotFound = %v, want %v", got, tc.notFound)
			}
			if got := domain.IsValidation(wrapped); got != tc.validation {
				t.Fatalf("IsValidation = %v, want %v", got, tc.validation)
			}
			if got := domain.IsConflict(wrapped); got != tc.conflict {
				t.Fatalf("IsConflict = %v, want %v", got, tc.conflict)
			}
		})
	}
}

func TestIdentityIsStaff(t *testing.T) {
	if (domain.Identity{UserID: "u", Role: domain.RoleAdmin}).IsStaff() == false {
		t.Fatal("admin is staff")
	}
	if (domain.Identity{UserID: "u", Role: domain.RoleReceptionist}).IsStaff() == false {
		t.Fatal("receptionist is staff")
	}
	if (domain.Identity{UserID: "u", Role: "Patient"}).IsStaff() {
		t.Fatal("patient is not staff")
	}
}

package entities

import "testing"

func TestCartTotals(t *testing.T) {
	cart := NewCart("user-1", "albaik")
	cart.AddItem(MenuItem{ID: "broast", Price: 10, Available: true}, 2)
	cart.AddItem(MenuItem{ID: "nuggets", Price: 5, Available: true}, 1)

	if got := cart.Subtotal(); got != 25.00 {
		t.Errorf("subtotal = %.2f, want 25.00", got)
	}
	if got := cart.VAT(); got != 3.75 {
		t.Errorf("vat = %.2f, want 3.75", got)
	}
	if got := cart.Total(); got != 28.75 {
		t.Errorf("total = %.2f, want 28.75", got)
	}
}

func TestCartTotalsRounding(t *testing.T) {
	cart := NewCart("user-1", "albaik")
	cart.AddItem(MenuItem{ID: "tea", Price: 3.33, Available: true}, 3)

	// 9.99 subtotal; VAT 1.4985 rounds to 1.50, total 11.4885 rounds to 11.49.
	if got := cart.Subtotal(); got != 9.99 {
		t.Errorf("subtotal = %.2f, want 9.99", got)
	}
	if got := cart.VAT(); got != 1.50 {
		t.Errorf("vat = %.2f, want 1.50", got)
	}
	if got := cart.Total(); got != 11.49 {
		t.Errorf("total = %.2f, want 11.49", got)
	}
}

func TestCartAddItemMergesLines(t *testing.T) {
	cart := NewCart("user-1", "albaik")
	item := MenuItem{ID: "broast", NameAr: "بروست", Price: 10, Available: true}

	cart.AddItem(item, 1)
	cart.AddItem(item, 2)
	cart.AddItem(item, 0) // defaults to 1

	if len(cart.Items) != 1 {
		t.Fatalf("lines = %d, want 1", len(cart.Items))
	}
	if cart.Items[0].Quantity != 4 {
		t.Errorf("quantity = %d, want 4", cart.Items[0].Quantity)
	}
}

func TestCartRejectsAddAfterCheckout(t *testing.T) {
	cart := NewCart("user-1", "albaik")
	cart.AddItem(MenuItem{ID: "broast", Price: 10}, 1)
	cart.Checkout()

	if err := cart.AddItem(MenuItem{ID: "nuggets", Price: 5}, 1); err == nil {
		t.Error("expected error adding to checked-out cart")
	}
}

func TestNewOrderFromCart(t *testing.T) {
	cart := NewCart("user-1", "albaik")
	cart.ID = "cart-1"
	cart.AddItem(MenuItem{ID: "broast", NameAr: "بروست", Price: 10}, 2)

	order, err := NewOrderFromCart("order-1", cart)
	if err != nil {
		t.Fatalf("NewOrderFromCart: %v", err)
	}
	if order.Total != 23.00 {
		t.Errorf("total = %.2f, want 23.00", order.Total)
	}
	if order.Status != OrderStatusConfirmed {
		t.Errorf("status = %s", order.Status)
	}
	if len(order.Lines) != 1 || order.Lines[0].Subtotal != 20.00 {
		t.Errorf("lines = %+v", order.Lines)
	}
	if cart.Status != CartStatusActive {
		t.Error("snapshotting must not mutate the cart")
	}
}

func TestNewOrderFromCartRejectsEmptyAndInactive(t *testing.T) {
	if _, err := NewOrderFromCart("order-1", nil); err == nil {
		t.Error("expected error for nil cart")
	}

	empty := NewCart("user-1", "albaik")
	if _, err := NewOrderFromCart("order-1", empty); err == nil {
		t.Error("expected error for empty cart")
	}

	done := NewCart("user-1", "albaik")
	done.AddItem(MenuItem{ID: "broast", Price: 10}, 1)
	done.Checkout()
	if _, err := NewOrderFromCart("order-1", done); err == nil {
		t.Error("expected error for checked-out cart")
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
)

type stubRestaurantRepo struct {
	restaurants map[string]*entities.Restaurant
}

func (s *stubRestaurantRepo) List(ctx context.Context) ([]*entities.Restaurant, error) {
	var out []*entities.Restaurant
	for _, r := range s.restaurants {
		out = append(out, r)
	}
	return out, nil
}

func (s *stubRestaurantRepo) GetByID(ctx context.Context, id string) (*entities.Restaurant, error) {
	return s.restaurants[id], nil
}

type stubCartRepo struct {
	active  *entities.Cart
	created int
	updated int
}

func (s *stubCartRepo) GetActive(ctx context.Context, userID string) (*entities.Cart, error) {
	return s.active, nil
}

func (s *stubCartRepo) Create(ctx context.Context, cart *entities.Cart) error {
	cart.ID = "cart-1"
	s.active = cart
	s.created++
	return nil
}

func (s *stubCartRepo) Update(ctx context.Context, cart *entities.Cart) error {
	s.active = cart
	s.updated++
	return nil
}

type stubOrderRepo struct {
	placed *entities.Order
	err    error
}

func (s *stubOrderRepo) Place(ctx context.Context, order *entities.Order, cart *entities.Cart) error {
	if s.err != nil {
		return s.err
	}
	s.placed = order
	cart.Checkout()
	return nil
}

func (s *stubOrderRepo) GetByID(ctx context.Context, id string) (*entities.Order, error) {
	if s.placed != nil && s.placed.ID == id {
		return s.placed, nil
	}
	return nil, nil
}

func fixtureRestaurant() *entities.Restaurant {
	return &entities.Restaurant{
		ID:     "albaik",
		NameAr: "البيك",
		NameEn: "Al Baik",
		Menu: []entities.MenuCategory{
			{
				CategoryAr: "وجبات",
				Items: []entities.MenuItem{
					{ID: "broast", NameAr: "بروست", Price: 10, Available: true},
					{ID: "nuggets", NameAr: "ناقتس", Price: 5, Available: true},
					{ID: "shrimp", NameAr: "روبيان", Price: 30, Available: false},
				},
			},
		},
	}
}

func newOrderingFixture() (*OrderingService, *stubCartRepo, *stubOrderRepo) {
	carts := &stubCartRepo{}
	orders := &stubOrderRepo{}
	restaurants := &stubRestaurantRepo{
		restaurants: map[string]*entities.Restaurant{"albaik": fixtureRestaurant()},
	}
	return NewOrderingService(restaurants, carts, orders, zap.NewNop()), carts, orders
}

func TestAddToCartCreatesAndMerges(t *testing.T) {
	svc, carts, _ := newOrderingFixture()
	ctx := context.Background()

	cart, err := svc.AddToCart(ctx, "user-1", "albaik", "broast", 2)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}
	if carts.created != 1 {
		t.Errorf("created = %d, want 1", carts.created)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 2 {
		t.Fatalf("cart items = %+v", cart.Items)
	}

	cart, err = svc.AddToCart(ctx, "user-1", "albaik", "broast", 1)
	if err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].Quantity != 3 {
		t.Errorf("after merge items = %+v", cart.Items)
	}
	if carts.updated != 1 {
		t.Errorf("updated = %d, want 1", carts.updated)
	}
}

func TestAddToCartRejectsUnavailableItem(t *testing.T) {
	svc, _, _ := newOrderingFixture()

	if _, err := svc.AddToCart(context.Background(), "user-1", "albaik", "shrimp", 1); err == nil {
		t.Error("expected error for unavailable item")
	}
	if _, err := svc.AddToCart(context.Background(), "user-1", "albaik", "nope", 1); err == nil {
		t.Error("expected error for unknown item")
	}
	if _, err := svc.AddToCart(context.Background(), "user-1", "nowhere", "broast", 1); err == nil {
		t.Error("expected error for unknown restaurant")
	}
}

func TestAddToCartRejectsSecondRestaurant(t *testing.T) {
	svc, carts, _ := newOrderingFixture()
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "user-1", "albaik", "broast", 1); err != nil {
		t.Fatalf("seed add: %v", err)
	}
	carts.active.RestaurantID = "elsewhere"

	_, err := svc.AddToCart(ctx, "user-1", "albaik", "broast", 1)
	if !errors.Is(err, ErrDifferentRestaurant) {
		t.Errorf("err = %v, want ErrDifferentRestaurant", err)
	}
}

func TestPlaceOrderTotals(t *testing.T) {
	svc, carts, orders := newOrderingFixture()
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "user-1", "albaik", "broast", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddToCart(ctx, "user-1", "albaik", "nuggets", 1); err != nil {
		t.Fatal(err)
	}

	order, err := svc.PlaceOrder(ctx, "user-1")
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	// 2×10 + 1×5 = 25.00, 15% VAT on top.
	if order.Subtotal != 25.00 {
		t.Errorf("subtotal = %.2f, want 25.00", order.Subtotal)
	}
	if order.VAT != 3.75 {
		t.Errorf("vat = %.2f, want 3.75", order.VAT)
	}
	if order.Total != 28.75 {
		t.Errorf("total = %.2f, want 28.75", order.Total)
	}
	if order.Status != entities.OrderStatusConfirmed {
		t.Errorf("status = %s", order.Status)
	}
	if order.EstimatedDelivery != entities.DeliveryEstimate {
		t.Errorf("estimated delivery = %q", order.EstimatedDelivery)
	}
	if orders.placed == nil {
		t.Fatal("order never reached storage")
	}
	if carts.active.Status != entities.CartStatusCheckedOut {
		t.Errorf("cart status = %s, want checked_out", carts.active.Status)
	}
}

func TestPlaceOrderWithoutCart(t *testing.T) {
	svc, _, _ := newOrderingFixture()

	_, err := svc.PlaceOrder(context.Background(), "user-1")
	if !errors.Is(err, ErrNoActiveCart) {
		t.Errorf("err = %v, want ErrNoActiveCart", err)
	}
}

func TestConfirmVoiceOrderPlacesCart(t *testing.T) {
	svc, _, orders := newOrderingFixture()
	ctx := context.Background()

	if _, err := svc.AddToCart(ctx, "user-1", "albaik", "broast", 1); err != nil {
		t.Fatal(err)
	}

	orderID, err := svc.ConfirmVoiceOrder(ctx, "user-1", "بروست واحد", 11.50)
	if err != nil {
		t.Fatalf("ConfirmVoiceOrder: %v", err)
	}
	if orders.placed == nil || orders.placed.ID != orderID {
		t.Errorf("expected cart-backed order %q in storage", orderID)
	}
}

func TestConfirmVoiceOrderWithoutCart(t *testing.T) {
	svc, _, orders := newOrderingFixture()

	orderID, err := svc.ConfirmVoiceOrder(context.Background(), "user-1", "وجبة دجاج", 28.75)
	if err != nil {
		t.Fatalf("ConfirmVoiceOrder: %v", err)
	}
	if orderID == "" {
		t.Error("expected a minted order id")
	}
	if orders.placed != nil {
		t.Error("no cart existed, nothing should reach order storage")
	}
}

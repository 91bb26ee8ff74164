package voice

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/realtime"
	"github.com/sufrahq/sufra-voice/domain/entities"
)

// Tool names declared to the model.
const (
	toolSelectRestaurant = "select_restaurant"
	toolConfirmOrder     = "confirm_order"
)

// OrderPlacer is the external order-placement collaborator.
type OrderPlacer interface {
	// ConfirmVoiceOrder places the caller's order and returns its id. The
	// summary and total come from the model's own running tally.
	ConfirmVoiceOrder(ctx context.Context, userID, summary string, total float64) (string, error)
}

// ToolSchemas declares the voice-ordering tool contract: restaurant
// selection and order confirmation. Menu-item IDs are deliberately not part
// of either schema.
func ToolSchemas() []realtime.Tool {
	return []realtime.Tool{
		{
			Type:        "function",
			Name:        toolSelectRestaurant,
			Description: "Select a restaurant to order from. Call this when the user says which restaurant they want.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"restaurant_name": {
						"type": "string",
						"description": "The name of the restaurant the user wants (e.g., 'البيك', 'الرومانسية', 'ماكدونالدز', 'Al Baik', 'McDonald''s')"
					}
				},
				"required": ["restaurant_name"]
			}`),
		},
		{
			Type:        "function",
			Name:        toolConfirmOrder,
			Description: "Confirm and place the user's order. Call this when the user says they want to confirm/finalize their order.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"order_summary": {
						"type": "string",
						"description": "A summary of what the user ordered, e.g., 'وجبة قطعتين بروست × 1، روبيان ٦ قطع × 2'"
					},
					"total_price": {
						"type": "number",
						"description": "The total price in SAR"
					}
				},
				"required": ["order_summary", "total_price"]
			}`),
		},
	}
}

// toolArgs is the typed argument union, one variant per declared tool.
// Parsing into the union up front means the dispatch switch below is
// exhaustive: an unhandled variant is a compile-time dead end, not a
// runtime fallthrough.
type toolArgs interface {
	isToolArgs()
}

type selectRestaurantArgs struct {
	RestaurantName string `json:"restaurant_name"`
}

type confirmOrderArgs struct {
	OrderSummary string  `json:"order_summary"`
	TotalPrice   float64 `json:"total_price"`
}

func (selectRestaurantArgs) isToolArgs() {}
func (confirmOrderArgs) isToolArgs()     {}

func parseToolArgs(name, rawArgs string) (toolArgs, error) {
	switch name {
	case toolSelectRestaurant:
		var args selectRestaurantArgs
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad %s arguments: %w", name, err)
		}
		return args, nil
	case toolConfirmOrder:
		var args confirmOrderArgs
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return nil, fmt.Errorf("bad %s arguments: %w", name, err)
		}
		return args, nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// ToolResult is the structured payload returned for every tool call,
// success or failure. It is always JSON-serializable.
type ToolResult map[string]interface{}

func toolFailure(err string) ToolResult {
	return ToolResult{"success": false, "error": err}
}

// Dispatcher resolves named tool invocations against local handlers. Every
// call produces exactly one result; handler failures degrade to an
// error-shaped payload so the session keeps running.
type Dispatcher struct {
	restaurants []*entities.Restaurant
	orders      OrderPlacer
	logger      *zap.Logger

	// onRestaurantSelected fires after a successful selection so the
	// controller can swap the session instructions.
	onRestaurantSelected func(*entities.Restaurant)
}

// NewDispatcher creates a tool dispatcher over a preloaded restaurant list.
func NewDispatcher(
	restaurants []*entities.Restaurant,
	orders OrderPlacer,
	onRestaurantSelected func(*entities.Restaurant),
	logger *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		restaurants:          restaurants,
		orders:               orders,
		onRestaurantSelected: onRestaurantSelected,
		logger:               logger,
	}
}

// Dispatch resolves one tool call. It never returns nil and never panics
// across the socket-message boundary.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, name, rawArgs string) ToolResult {
	args, err := parseToolArgs(name, rawArgs)
	if err != nil {
		d.logger.Warn("Tool call rejected", zap.String("tool", name), zap.Error(err))
		return toolFailure(err.Error())
	}

	switch a := args.(type) {
	case selectRestaurantArgs:
		return d.selectRestaurant(a)
	case confirmOrderArgs:
		return d.confirmOrder(ctx, userID, a)
	}
	// Unreachable while parseToolArgs and the union stay in sync.
	return toolFailure(fmt.Sprintf("unhandled tool: %s", name))
}

func (d *Dispatcher) selectRestaurant(args selectRestaurantArgs) ToolResult {
	restaurant := MatchRestaurant(args.RestaurantName, d.restaurants)
	if restaurant == nil {
		available := KnownNamesAr(d.restaurants)
		d.logger.Info("Restaurant not resolved",
			zap.String("input", args.RestaurantName),
			zap.String("available", available))
		return toolFailure(fmt.Sprintf("لم أجد مطعم بهذا الاسم. المطاعم المتاحة: %s", available))
	}

	if d.onRestaurantSelected != nil {
		d.onRestaurantSelected(restaurant)
	}

	categories := restaurant.CategoryNamesAr()
	d.logger.Info("Restaurant selected",
		zap.String("restaurant", restaurant.NameEn),
		zap.Int("categories", len(restaurant.Menu)))

	return ToolResult{
		"success":            true,
		"restaurant_name_ar": restaurant.NameAr,
		"restaurant_name_en": restaurant.NameEn,
		"categories":         categories,
		"total_items":        restaurant.ItemCount(),
		"message":            fmt.Sprintf("تم اختيار %s. الأقسام المتاحة: %s", restaurant.NameAr, categories),
	}
}

func (d *Dispatcher) confirmOrder(ctx context.Context, userID string, args confirmOrderArgs) ToolResult {
	orderID, err := d.orders.ConfirmVoiceOrder(ctx, userID, args.OrderSummary, args.TotalPrice)
	if err != nil {
		d.logger.Error("Order confirmation failed", zap.Error(err))
		return toolFailure("تعذر تأكيد الطلب، حاول مرة ثانية")
	}

	return ToolResult{
		"success":            true,
		"order_id":           orderID,
		"status":             "confirmed",
		"estimated_delivery": entities.DeliveryEstimate,
		"summary":            args.OrderSummary,
		"total":              args.TotalPrice,
		"message": fmt.Sprintf("تم تأكيد طلبك! المجموع: %.2f ريال. التوصيل المتوقع: %s. بالعافية!",
			args.TotalPrice, entities.DeliveryEstimate),
	}
}

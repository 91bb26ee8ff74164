package entities

import "strings"

// MenuItem is a single orderable item. Prices are in SAR.
type MenuItem struct {
	ID            string    `json:"id" bson:"_id"`
	NameAr        string    `json:"name_ar" bson:"name_ar"`
	NameEn        string    `json:"name_en" bson:"name_en"`
	DescriptionAr string    `json:"description_ar" bson:"description_ar"`
	Price         float64   `json:"price" bson:"price"`
	Available     bool      `json:"available" bson:"available"`
	Embedding     []float32 `json:"-" bson:"embedding,omitempty"`
}

// MenuCategory groups items under a named section of the menu
type MenuCategory struct {
	CategoryAr string     `json:"category_ar" bson:"category_ar"`
	CategoryEn string     `json:"category_en" bson:"category_en"`
	Items      []MenuItem `json:"items" bson:"items"`
}

// Restaurant is one restaurant with its structured menu. VoiceContext is a
// restaurant-specific blurb injected into the assistant instructions after
// selection.
type Restaurant struct {
	ID           string         `json:"id" bson:"_id"`
	NameAr       string         `json:"name_ar" bson:"name_ar"`
	NameEn       string         `json:"name_en" bson:"name_en"`
	VoiceContext string         `json:"ai_voice_context" bson:"ai_voice_context"`
	Menu         []MenuCategory `json:"menu" bson:"menu"`
}

// CategoryNamesAr returns the Arabic category names joined with the Arabic
// comma, the form the assistant reads out.
func (r *Restaurant) CategoryNamesAr() string {
	names := make([]string, 0, len(r.Menu))
	for _, cat := range r.Menu {
		names = append(names, cat.CategoryAr)
	}
	return strings.Join(names, "، ")
}

// ItemCount returns the total number of items across all categories.
func (r *Restaurant) ItemCount() int {
	n := 0
	for _, cat := range r.Menu {
		n += len(cat.Items)
	}
	return n
}

// AvailableItems returns all items currently marked available.
func (r *Restaurant) AvailableItems() []MenuItem {
	var items []MenuItem
	for _, cat := range r.Menu {
		for _, item := range cat.Items {
			if item.Available {
				items = append(items, item)
			}
		}
	}
	return items
}

// FindItem looks an item up by ID across all categories.
func (r *Restaurant) FindItem(itemID string) (MenuItem, bool) {
	for _, cat := range r.Menu {
		for _, item := range cat.Items {
			if item.ID == itemID {
				return item, true
			}
		}
	}
	return MenuItem{}, false
}

package catalog

import "context"

// ItemDescriptor is the read-only view of a menu item this service
// consumes. Catalog content itself is owned elsewhere.
type ItemDescriptor struct {
	MealID    string `json:"meal_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Image     string `json:"image"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
}

// Catalog resolves meal IDs to descriptors.
type Catalog interface {
	Item(ctx context.Context, mealID string) (*ItemDescriptor, bool)
}

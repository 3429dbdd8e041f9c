package expense

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense is one deductible business expense record
type Expense struct {
	ID          uuid.UUID       `db:"id"`
	UserID      string          `db:"user_id"`
	Description string          `db:"description"`
	Amount      decimal.Decimal `db:"amount"`
	Category    string          `db:"category"`
	Date        string          `db:"expense_date"` // ISO date, day precision
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// Expense categories accepted by the action decision contract
const (
	CategoryOfficeEquipment = "office_equipment"
	CategorySoftware        = "software"
	CategoryTravel          = "travel"
	CategoryEducation       = "education"
	CategoryCommunication   = "communication"
	CategoryVehicle         = "vehicle"
	CategoryMeals           = "meals"
	CategoryHomeOffice      = "home_office"
	CategoryOther           = "other"
)

// Categories lists all valid categories in a stable order
var Categories = []string{
	CategoryOfficeEquipment,
	CategorySoftware,
	CategoryTravel,
	CategoryEducation,
	CategoryCommunication,
	CategoryVehicle,
	CategoryMeals,
	CategoryHomeOffice,
	CategoryOther,
}

// ValidCategory reports whether c is a known category
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}

// GuessCategory infers a category from free text, falling back to other
func GuessCategory(text string) string {
	t := strings.ToLower(text)
	switch {
	case containsAny(t, "laptop", "computer", "monitor", "desk", "chair", "printer", "keyboard"):
		return CategoryOfficeEquipment
	case containsAny(t, "software", "subscription", "license", "saas", "app "):
		return CategorySoftware
	case containsAny(t, "flight", "train", "hotel", "taxi", "travel", "trip"):
		return CategoryTravel
	case containsAny(t, "course", "book", "training", "seminar", "conference"):
		return CategoryEducation
	case containsAny(t, "phone", "internet", "mobile", "sim "):
		return CategoryCommunication
	case containsAny(t, "car", "fuel", "petrol", "diesel", "parking", "vehicle"):
		return CategoryVehicle
	case containsAny(t, "lunch", "dinner", "meal", "restaurant"):
		return CategoryMeals
	case containsAny(t, "home office", "rent", "electricity", "heating"):
		return CategoryHomeOffice
	}
	return CategoryOther
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

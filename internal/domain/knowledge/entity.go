package knowledge

import "time"

// Entry is one retrievable German tax rule or deduction description
type Entry struct {
	ID        int       `db:"id"`
	Topic     string    `db:"topic"` // deductions, income_tax, vat, home_office, ...
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	TaxYear   int       `db:"tax_year"`
	Keywords  []string  `db:"-"`
	CreatedAt time.Time `db:"created_at"`
}

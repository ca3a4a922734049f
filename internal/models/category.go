package models

// Category is the fixed set of labels a transaction can carry
type Category string

const (
	CategoryFood     Category = "Food"
	CategoryTravel   Category = "Travel"
	CategoryShopping Category = "Shopping"
	CategoryBills    Category = "Bills"
	CategorySalary   Category = "Salary"
	CategoryOther    Category = "Other"
)

// FilterAll is the filter value that disables a category or type predicate
const FilterAll = "All"

// AllCategories returns all valid categories in display order
func AllCategories() []Category {
	return []Category{
		CategoryFood,
		CategoryTravel,
		CategoryShopping,
		CategoryBills,
		CategorySalary,
		CategoryOther,
	}
}

// IsValidCategory checks if a category string is valid
func IsValidCategory(category string) bool {
	for _, validCategory := range AllCategories() {
		if category == string(validCategory) {
			return true
		}
	}
	return false
}

// CategoryFilterOptions returns the values accepted by the category filter
func CategoryFilterOptions() []string {
	options := []string{FilterAll}
	for _, category := range AllCategories() {
		options = append(options, string(category))
	}
	return options
}

package enums

import "fmt"

// StockCategory classifies a sellable stock row.
type StockCategory string

const (
	StockCategoryRetail StockCategory = "retail"
	StockCategoryTester StockCategory = "tester"
	StockCategorySample StockCategory = "sample"
	StockCategoryDecant StockCategory = "decant"
)

var validStockCategories = []StockCategory{
	StockCategoryRetail,
	StockCategoryTester,
	StockCategorySample,
	StockCategoryDecant,
}

// String implements fmt.Stringer.
func (c StockCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known StockCategory.
func (c StockCategory) IsValid() bool {
	for _, candidate := range validStockCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseStockCategory converts raw input into a StockCategory.
func ParseStockCategory(value string) (StockCategory, error) {
	for _, candidate := range validStockCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock category %q", value)
}

package services

import (
	"fmt"
	"sort"
	"time"

	"money-tracker/internal/editor"
	"money-tracker/internal/models"

	"github.com/brianvoe/gofakeit/v7"
)

const (
	biWeeklyDays = 14
	maxBillDay   = 28
)

// TransactionGeneratorInterface produces plausible transaction forms for demo data
type TransactionGeneratorInterface interface {
	Generate(start, end time.Time, count int) []editor.Form
}

type transactionGenerator struct {
	faker *gofakeit.Faker
}

// NewTransactionGenerator creates a generator. The same seed yields the same forms.
func NewTransactionGenerator(seed uint64) TransactionGeneratorInterface {
	return &transactionGenerator{faker: gofakeit.New(seed)}
}

var amountRanges = map[models.Category][2]float64{
	models.CategoryFood:     {8.00, 120.00},
	models.CategoryTravel:   {10.00, 800.00},
	models.CategoryShopping: {15.00, 450.00},
	models.CategoryBills:    {40.00, 250.00},
	models.CategorySalary:   {2000.00, 4500.00},
	models.CategoryOther:    {5.00, 150.00},
}

var billNames = []string{"Electricity", "Internet", "Water", "Phone", "Rent"}

// Generate returns at most count forms dated within [start, end]: bi-weekly
// salary income, monthly bills, then random purchases. Forms come back in date order.
func (g *transactionGenerator) Generate(start, end time.Time, count int) []editor.Form {
	if count <= 0 || !end.After(start) {
		return nil
	}

	forms := make([]editor.Form, 0, count)
	forms = append(forms, g.salaries(start, end)...)
	forms = append(forms, g.bills(start, end)...)
	if len(forms) > count {
		forms = forms[:count]
	}

	for len(forms) < count {
		forms = append(forms, g.purchase(start, end))
	}

	sort.SliceStable(forms, func(i, j int) bool { return forms[i].Date < forms[j].Date })
	return forms
}

func (g *transactionGenerator) salaries(start, end time.Time) []editor.Form {
	employer := g.faker.Company()
	amount := g.amount(models.CategorySalary)

	var forms []editor.Form
	for day := start.AddDate(0, 0, biWeeklyDays); !day.After(end); day = day.AddDate(0, 0, biWeeklyDays) {
		forms = append(forms, g.form("Salary - "+employer, amount, models.CategorySalary, day, models.TransactionTypeIncome))
	}
	return forms
}

func (g *transactionGenerator) bills(start, end time.Time) []editor.Form {
	var forms []editor.Form
	month := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !month.After(end) {
		for _, name := range billNames {
			day := month.AddDate(0, 0, g.faker.Number(0, maxBillDay-1))
			if day.Before(start) || day.After(end) {
				continue
			}
			forms = append(forms, g.form(name+" bill", g.amount(models.CategoryBills), models.CategoryBills, day, models.TransactionTypeExpense))
		}
		month = month.AddDate(0, 1, 0)
	}
	return forms
}

func (g *transactionGenerator) purchase(start, end time.Time) editor.Form {
	categories := []models.Category{models.CategoryFood, models.CategoryTravel, models.CategoryShopping, models.CategoryOther}
	category := categories[g.faker.Number(0, len(categories)-1)]

	var title string
	switch category {
	case models.CategoryFood:
		title = "Lunch at " + g.faker.Company()
	case models.CategoryTravel:
		title = "Trip to " + g.faker.City()
	case models.CategoryShopping:
		title = g.faker.ProductName()
	default:
		title = g.faker.Company()
	}

	day := g.faker.DateRange(start, end)
	// one purchase in twenty is a refund
	txType := models.TransactionTypeExpense
	if g.faker.Number(1, 20) == 1 {
		txType = models.TransactionTypeIncome
		title = "Refund - " + title
	}

	return g.form(title, g.amount(category), category, day, txType)
}

func (g *transactionGenerator) amount(category models.Category) float64 {
	r := amountRanges[category]
	return g.faker.Price(r[0], r[1])
}

func (g *transactionGenerator) form(title string, amount float64, category models.Category, day time.Time, txType models.TransactionType) editor.Form {
	return editor.Form{
		Title:    title,
		Amount:   fmt.Sprintf("%.2f", amount),
		Category: string(category),
		Date:     day.UTC().Format(models.DateLayout),
		Type:     string(txType),
	}
}

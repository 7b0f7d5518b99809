package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

type ServiceType struct {
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	MinDays    int             `json:"min_days"`
	MaxDays    int             `json:"max_days"`
	Fee        decimal.Decimal `json:"fee"`
	Currency   string          `json:"currency"`
	Authority  string          `json:"authority"`
	ValidYears int             `json:"valid_years"`
}

const (
	AuthorityMunicipal = "Municipal Corporation"
	AuthorityRevenue   = "Revenue Department"

	// DefaultProcessingDays applies when a service type has no estimate.
	DefaultProcessingDays = 7
)

var serviceCatalogue = map[string]ServiceType{
	"birth_cert": {
		Code: "birth_cert", Name: "Birth Certificate", MinDays: 3, MaxDays: 5,
		Fee: decimal.NewFromInt(50), Currency: "INR", Authority: AuthorityMunicipal, ValidYears: 5,
	},
	"income_cert": {
		Code: "income_cert", Name: "Income Certificate", MinDays: 5, MaxDays: 7,
		Fee: decimal.NewFromInt(75), Currency: "INR", Authority: AuthorityRevenue, ValidYears: 1,
	},
	"domicile_cert": {
		Code: "domicile_cert", Name: "Domicile Certificate", MinDays: 7, MaxDays: 10,
		Fee: decimal.NewFromInt(100), Currency: "INR", Authority: AuthorityRevenue, ValidYears: 5,
	},
	"caste_cert": {
		Code: "caste_cert", Name: "Caste Certificate", MinDays: 10, MaxDays: 14,
		Fee: decimal.NewFromInt(100), Currency: "INR", Authority: AuthorityRevenue, ValidYears: 5,
	},
	"marriage_cert": {
		Code: "marriage_cert", Name: "Marriage Certificate", MinDays: 5, MaxDays: 7,
		Fee: decimal.NewFromInt(150), Currency: "INR", Authority: AuthorityMunicipal, ValidYears: 5,
	},
}

func LookupServiceType(code string) (ServiceType, bool) {
	st, ok := serviceCatalogue[code]
	return st, ok
}

// ServiceTypes returns the catalogue ordered by code.
func ServiceTypes() []ServiceType {
	out := make([]ServiceType, 0, len(serviceCatalogue))
	for _, st := range serviceCatalogue {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (s ServiceType) ProcessingDays() int {
	if s.MaxDays <= 0 {
		return DefaultProcessingDays
	}
	return s.MaxDays
}

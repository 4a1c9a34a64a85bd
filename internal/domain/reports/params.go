package reports

import (
	"time"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/domain/ledger"
)

// AnalysisParams is the caller-facing filter of an analysis.
// Nil, blank and "All" filters all mean "no filter".
type AnalysisParams struct {
	StartDate    string
	EndDate      string
	PartnerCode  *string
	ProductModel *string
	Type         string
}

// analysisQuery is the validated form of AnalysisParams.
type analysisQuery struct {
	params    QueryParams
	direction ledger.Direction
	scope     ledger.Scope
	key       string
	detailKey string
}

// validate checks dates (required, YYYY-MM-DD, start <= end) and type.
func (p AnalysisParams) validate() (analysisQuery, error) {
	if p.StartDate == "" || p.EndDate == "" {
		return analysisQuery{}, apperror.NewValidation("start_date and end_date are required")
	}
	from, err := time.Parse(ledger.DateLayout, p.StartDate)
	if err != nil {
		return analysisQuery{}, apperror.NewValidation("start_date must be YYYY-MM-DD").WithDetail("start_date", p.StartDate)
	}
	to, err := time.Parse(ledger.DateLayout, p.EndDate)
	if err != nil {
		return analysisQuery{}, apperror.NewValidation("end_date must be YYYY-MM-DD").WithDetail("end_date", p.EndDate)
	}
	if from.After(to) {
		return analysisQuery{}, apperror.NewValidation("start_date must not be after end_date").
			WithDetail("start_date", p.StartDate).
			WithDetail("end_date", p.EndDate)
	}
	dir, err := ledger.ParseDirection(p.Type)
	if err != nil {
		return analysisQuery{}, apperror.NewValidation(err.Error()).WithDetail("type", p.Type)
	}

	partner := NormalizeFilter(p.PartnerCode)
	product := NormalizeFilter(p.ProductModel)

	scope := ledger.Scope{From: from, To: to}
	if partner != AllFilter {
		scope.PartnerCode = partner
	}
	if product != AllFilter {
		scope.ProductModel = product
	}

	return analysisQuery{
		params: QueryParams{
			StartDate:    p.StartDate,
			EndDate:      p.EndDate,
			PartnerCode:  partner,
			ProductModel: product,
			Type:         dir,
		},
		direction: dir,
		scope:     scope,
		key:       GenerateCacheKey(dir, p.StartDate, p.EndDate, p.PartnerCode, p.ProductModel),
		detailKey: GenerateDetailCacheKey(dir, p.StartDate, p.EndDate, p.PartnerCode, p.ProductModel),
	}, nil
}

package revenue

import (
	"github.com/shopspring/decimal"

	pkgerrors "github.com/sumo1993/medconsult-liberia-sub003/pkg/errors"
)

const moneyPlaces = 2

var (
	consultantRate = decimal.RequireFromString("0.75")
	websiteRate    = decimal.RequireFromString("0.10")
	teamRate       = decimal.RequireFromString("0.15")
)

// Shares is the three-way split of a settled price. Each component is rounded
// to cents on its own, so the sum may drift from the price by at most a cent
// per component; the residue is not reassigned.
type Shares struct {
	Price           decimal.Decimal `json:"price"`
	ConsultantShare decimal.Decimal `json:"consultant_share"`
	WebsiteFee      decimal.Decimal `json:"website_fee"`
	TeamFee         decimal.Decimal `json:"team_fee"`
}

// Total sums the three components.
func (s Shares) Total() decimal.Decimal {
	return s.ConsultantShare.Add(s.WebsiteFee).Add(s.TeamFee)
}

// Split maps an effective price to consultant, website and team shares.
func Split(price decimal.Decimal) (Shares, error) {
	if price.IsNegative() {
		return Shares{}, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	return Shares{
		Price:           price,
		ConsultantShare: price.Mul(consultantRate).Round(moneyPlaces),
		WebsiteFee:      price.Mul(websiteRate).Round(moneyPlaces),
		TeamFee:         price.Mul(teamRate).Round(moneyPlaces),
	}, nil
}

package revenue

import (
	"github.com/shopspring/decimal"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// TeamWeightDivisor is the literal denominator applied to every team weight.
// It equals the sum of the weights below, so the four shares partition the
// team fee; it is 95 rather than 100 and kept that way until finance confirms
// whether the missing five points were meant as a reserve.
const TeamWeightDivisor = 95

// shareScale is the precision used for the intermediate team shares.
const shareScale = 16

// TeamWeight is one recipient's slice of the team fee.
type TeamWeight struct {
	Recipient enums.PaymentType
	Weight    int64
}

var teamWeights = []TeamWeight{
	{Recipient: enums.PaymentTypeCEO, Weight: 40},
	{Recipient: enums.PaymentTypeITSpecialist, Weight: 25},
	{Recipient: enums.PaymentTypeAccountant, Weight: 15},
	{Recipient: enums.PaymentTypeOtherTeam, Weight: 15},
}

// Weights returns a copy of the team distribution table.
func Weights() []TeamWeight {
	out := make([]TeamWeight, len(teamWeights))
	copy(out, teamWeights)
	return out
}

// TeamDistribution holds the exact per-recipient shares of a team fee.
type TeamDistribution struct {
	CEO          decimal.Decimal `json:"ceo"`
	ITSpecialist decimal.Decimal `json:"it_specialist"`
	Accountant   decimal.Decimal `json:"accountant"`
	OtherTeam    decimal.Decimal `json:"other_team"`
}

// DistributeTeamFee splits teamFee by weight/95. Shares are carried at high
// precision and the last recipient absorbs the division remainder, so they sum
// exactly to teamFee.
func DistributeTeamFee(teamFee decimal.Decimal) TeamDistribution {
	divisor := decimal.NewFromInt(TeamWeightDivisor)
	shares := make(map[enums.PaymentType]decimal.Decimal, len(teamWeights))
	allocated := decimal.Zero
	for i, w := range teamWeights {
		if i == len(teamWeights)-1 {
			shares[w.Recipient] = teamFee.Sub(allocated)
			break
		}
		share := teamFee.Mul(decimal.NewFromInt(w.Weight)).DivRound(divisor, shareScale)
		shares[w.Recipient] = share
		allocated = allocated.Add(share)
	}
	return TeamDistribution{
		CEO:          shares[enums.PaymentTypeCEO],
		ITSpecialist: shares[enums.PaymentTypeITSpecialist],
		Accountant:   shares[enums.PaymentTypeAccountant],
		OtherTeam:    shares[enums.PaymentTypeOtherTeam],
	}
}

// For returns the share owed to a team recipient; consultants get zero.
func (d TeamDistribution) For(recipient enums.PaymentType) decimal.Decimal {
	switch recipient {
	case enums.PaymentTypeCEO:
		return d.CEO
	case enums.PaymentTypeITSpecialist:
		return d.ITSpecialist
	case enums.PaymentTypeAccountant:
		return d.Accountant
	case enums.PaymentTypeOtherTeam:
		return d.OtherTeam
	default:
		return decimal.Zero
	}
}

// Total sums the four shares.
func (d TeamDistribution) Total() decimal.Decimal {
	return d.CEO.Add(d.ITSpecialist).Add(d.Accountant).Add(d.OtherTeam)
}

// Rounded returns the distribution at cent precision for display. The rounded
// shares may not sum to the fee.
func (d TeamDistribution) Rounded() TeamDistribution {
	return TeamDistribution{
		CEO:          d.CEO.Round(moneyPlaces),
		ITSpecialist: d.ITSpecialist.Round(moneyPlaces),
		Accountant:   d.Accountant.Round(moneyPlaces),
		OtherTeam:    d.OtherTeam.Round(moneyPlaces),
	}
}

package enums

import "fmt"

// ReviewDecision is the client's answer to a final submission.
type ReviewDecision string

const (
	ReviewDecisionAccept ReviewDecision = "accept"
	ReviewDecisionReject ReviewDecision = "reject"
)

func (d ReviewDecision) String() string {
	return string(d)
}

func (d ReviewDecision) IsValid() bool {
	return d == ReviewDecisionAccept || d == ReviewDecisionReject
}

func ParseReviewDecision(value string) (ReviewDecision, error) {
	d := ReviewDecision(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid review decision %q", value)
	}
	return d, nil
}

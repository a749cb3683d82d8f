package enums

import (
	"fmt"
	"slices"
)

// ClientReviewStatus is the client's verdict on a final submission.
type ClientReviewStatus string

const (
	ClientReviewStatusNone     ClientReviewStatus = "none"
	ClientReviewStatusPending  ClientReviewStatus = "pending"
	ClientReviewStatusAccepted ClientReviewStatus = "accepted"
	ClientReviewStatusRejected ClientReviewStatus = "rejected"
)

var validClientReviewStatuses = []ClientReviewStatus{
	ClientReviewStatusNone,
	ClientReviewStatusPending,
	ClientReviewStatusAccepted,
	ClientReviewStatusRejected,
}

func (s ClientReviewStatus) String() string {
	return string(s)
}

func (s ClientReviewStatus) IsValid() bool {
	return slices.Contains(validClientReviewStatuses, s)
}

func ParseClientReviewStatus(value string) (ClientReviewStatus, error) {
	for _, candidate := range validClientReviewStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid client review status %q", value)
}

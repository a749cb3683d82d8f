package notifications

import (
	"fmt"

	"github.com/sumo1993/medconsult-liberia-sub003/pkg/enums"
)

// Event is a lifecycle occurrence worth telling people about.
type Event struct {
	Type         enums.NotificationType
	AssignmentID uint64
	Title        string
	Message      string
	// Recipients receive an in-app notification.
	Recipients []uint64
	// NotifyOps additionally e-mails the operations mailbox.
	NotifyOps bool
}

func (e Event) link() *string {
	if e.AssignmentID == 0 {
		return nil
	}
	link := fmt.Sprintf("/assignments/%d", e.AssignmentID)
	return &link
}

func (e Event) recipients() []uint64 {
	seen := make(map[uint64]struct{}, len(e.Recipients))
	out := make([]uint64, 0, len(e.Recipients))
	for _, id := range e.Recipients {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

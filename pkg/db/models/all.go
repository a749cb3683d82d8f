package models

// All lists every persisted model; the sqlite bootstrap migrates them in order.
func All() []any {
	return []any{
		&AssignmentRequest{},
		&AssignmentMessage{},
		&ConsultantEarning{},
		&PaymentRecord{},
		&Rating{},
		&ConsultantProfile{},
		&Notification{},
	}
}

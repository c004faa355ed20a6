package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Course{},
		&Enrollment{},
		&Chapter{},
		&Resource{},
		&Assignment{},
		&Submission{},
		&Quiz{},
		&QuizAttempt{},
		&ProgressRecord{},
		&ProgressItem{},
		&Notification{},
	}
}

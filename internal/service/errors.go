package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is the class of every "referenced entity does not exist" error.
var ErrNotFound = errors.New("not found")

var (
	ErrCourseNotFound       = fmt.Errorf("course %w", ErrNotFound)
	ErrStudentNotFound      = fmt.Errorf("student %w", ErrNotFound)
	ErrResourceNotFound     = fmt.Errorf("resource %w", ErrNotFound)
	ErrChapterNotFound      = fmt.Errorf("chapter %w", ErrNotFound)
	ErrAssignmentNotFound   = fmt.Errorf("assignment %w", ErrNotFound)
	ErrQuizNotFound         = fmt.Errorf("quiz %w", ErrNotFound)
	ErrAttemptNotFound      = fmt.Errorf("quiz attempt %w", ErrNotFound)
	ErrSubmissionNotFound   = fmt.Errorf("submission %w", ErrNotFound)
	ErrProgressNotFound     = fmt.Errorf("progress %w", ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", ErrNotFound)
)

var (
	// ErrInvalidAction is returned by the progress dispatch for an unrecognized action kind.
	ErrInvalidAction = errors.New("invalid progress action")
	// ErrMissingItem is returned when an action requires an item id that was not supplied.
	ErrMissingItem = errors.New("progress action requires an item id")
	// ErrItemOutsideCourse is returned when the referenced item belongs to another course.
	ErrItemOutsideCourse = errors.New("item does not belong to the course")
	// ErrAlreadyEnrolled is returned when enrolling a student twice.
	ErrAlreadyEnrolled = errors.New("student already enrolled")
	// ErrNotEnrolled is returned when unenrolling a student that is not on the roster.
	ErrNotEnrolled = errors.New("student not enrolled")
	// ErrInvalidAccessKey is returned when the course access key does not match.
	ErrInvalidAccessKey = errors.New("invalid course access key")
	// ErrAlreadySubmitted is returned when a student submits the same assignment twice.
	ErrAlreadySubmitted = errors.New("assignment already submitted")
	// ErrInvalidDueDate is returned when an assignment due date is malformed or already past.
	ErrInvalidDueDate = errors.New("invalid due date")
	// ErrEmptyContent is returned when user supplied text is empty once sanitized.
	ErrEmptyContent = errors.New("content empty after sanitization")
	// ErrQuizNotCompleted is returned when a quiz is marked completed without a completed attempt.
	ErrQuizNotCompleted = errors.New("quiz has no completed attempt")
	// ErrForbidden is returned when the actor may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
)

package types

import "fmt"

// QueueName identifies one of the fixed set of typed work queues
type QueueName string

const (
	QueueGeneral      QueueName = "general"
	QueueContent      QueueName = "content"
	QueueTechnicalSEO QueueName = "technical_seo"
	QueuePublishing   QueueName = "publishing"
	QueueVerification QueueName = "verification"
)

// AllQueueNames returns all valid queue names
func AllQueueNames() []QueueName {
	return []QueueName{
		QueueGeneral,
		QueueContent,
		QueueTechnicalSEO,
		QueuePublishing,
		QueueVerification,
	}
}

// IsValid checks if the queue name is valid
func (q QueueName) IsValid() bool {
	switch q {
	case QueueGeneral, QueueContent, QueueTechnicalSEO, QueuePublishing, QueueVerification:
		return true
	default:
		return false
	}
}

// String returns the string representation of the queue name
func (q QueueName) String() string {
	return string(q)
}

// ParseQueueName parses a string into a QueueName
func ParseQueueName(s string) (QueueName, error) {
	q := QueueName(s)
	if !q.IsValid() {
		return "", fmt.Errorf("invalid queue name: %s", s)
	}
	return q, nil
}

// DefaultConcurrency returns the worker concurrency ceiling for the queue.
// Publishing is capped lowest because it mutates third-party state; verification
// is capped highest because checks are read-only I/O.
func (q QueueName) DefaultConcurrency() int {
	switch q {
	case QueueContent:
		return 3
	case QueuePublishing:
		return 2
	case QueueVerification:
		return 10
	default:
		return 5
	}
}

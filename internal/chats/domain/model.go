package domain

import (
	"fmt"
	"time"
)

// Message is one transcript entry: any JSON value the client sends,
// usually an object. Arrays may not nest inside the messages array.
type Message = interface{}

// EmptyMessage reports whether m carries nothing worth appending: a
// missing value, an empty string, false or zero.
func EmptyMessage(m Message) bool {
	switch v := m.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case float64:
		return v == 0
	}
	return false
}

// Chat is a saved AI conversation scoped to a user and a project.
type Chat struct {
	ID        string    `json:"id" firestore:"-"`
	UID       string    `json:"uid" firestore:"uid"`
	ProjectID string    `json:"projectID" firestore:"projectID"`
	Title     string    `json:"title" firestore:"title"`
	Messages  []Message `json:"messages" firestore:"messages"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type NewChat struct {
	UID       string
	ProjectID string
	Title     string
	Messages  []Message
}

// ChatID builds the "{uid}-{projectID}-{unixMillis}" document id.
func ChatID(uid, projectID string, at time.Time) string {
	return fmt.Sprintf("%s-%s-%d", uid, projectID, at.UnixMilli())
}

package rag

import (
	"fmt"
	"strings"
	"time"
)

const (
	GreetingMorning   = "Good morning"
	GreetingAfternoon = "Good afternoon"
	GreetingEvening   = "Good evening"
)

// welcomeQuery retrieves an overview of the ingested documents.
const welcomeQuery = "What topics, products and services do these documents describe?"

// Greeting picks the greeting from the wall-clock hour of t:
// before 12:00 morning, 12:00-17:59 afternoon, from 18:00 evening.
func Greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h < 12:
		return GreetingMorning
	case h < 18:
		return GreetingAfternoon
	default:
		return GreetingEvening
	}
}

type WelcomeRequest struct {
	Name string
	Now  time.Time
}

func welcomeDirective(req WelcomeRequest) string {
	greeting := Greeting(req.Now)
	if name := strings.TrimSpace(req.Name); name != "" {
		greeting = greeting + ", " + name
	}
	return fmt.Sprintf(`Write a short welcome message for the user.
Open with exactly this greeting: %q.
Then briefly describe the kinds of questions you can answer, based only on the Context.
If the Context is empty, say that no documents are available yet.
End by inviting the user to ask a question.`, greeting)
}

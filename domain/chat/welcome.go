package chat

import "fmt"

// Welcome builds the greeting of a freshly joined session.
// It is never persisted nor broadcast to other participants.
func Welcome(label string) WelcomeFrame {
	return WelcomeFrame{
		User: SystemUser,
		Text: fmt.Sprintf("Welcome %s, you are now connected to the chat", label),
	}
}

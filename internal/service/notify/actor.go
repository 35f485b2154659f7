package notify

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies the appliance announcing a bell.
type Actor struct {
	// Hostname is the name of the machine running the scheduler.
	Hostname string
	// Username is the account the scheduler runs as.
	Username string
}

// DetectActor gathers host and user information for announcements.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{Hostname: hostname}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}

package scheduling

import (
	"errors"
	"strings"

	"slotkeeper/internal/domain"
)

const MessagePickAnotherSlot = "That time is no longer available. Please pick a different slot."

// Message turns a scheduling failure into text a customer can act on.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *domain.RemoteError
	if !errors.As(err, &re) {
		return err.Error()
	}
	msg := strings.ToLower(re.Message + " " + re.Body)
	switch {
	case strings.Contains(msg, "no open schedule"),
		strings.Contains(msg, "not available"),
		strings.Contains(msg, "fully booked"):
		return MessagePickAnotherSlot
	case re.Message != "":
		return re.Message
	}
	return re.Error()
}

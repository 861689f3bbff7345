package domain

import "fmt"

type Action string

const (
	ActionConfirm Action = "CONFIRM"
	ActionCancel  Action = "CANCEL"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionConfirm, ActionCancel:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidState, s)
}

// SystemActor is the actor id used by background jobs. It may only cancel.
const SystemActor = "system"

// Transition applies action to a booking on behalf of actorID and returns the
// resulting status. Authorization is checked before the current state.
func Transition(b *OwnedBooking, actorID string, action Action) (BookingStatus, error) {
	isOwner := actorID != "" && actorID == b.OwnerID
	isRequester := actorID != "" && actorID == b.UserID

	switch action {
	case ActionConfirm:
		if !isOwner {
			return "", fmt.Errorf("%w: only the parking owner can confirm a booking", ErrNotAuthorized)
		}
		if b.Status != BookingStatusPending {
			return "", fmt.Errorf("%w: cannot confirm a %s booking", ErrInvalidState, b.Status)
		}
		return BookingStatusConfirmed, nil
	case ActionCancel:
		if !isOwner && !isRequester && actorID != SystemActor {
			return "", fmt.Errorf("%w: only the owner or the driver can cancel a booking", ErrNotAuthorized)
		}
		if b.Status != BookingStatusPending && b.Status != BookingStatusConfirmed {
			return "", fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidState, b.Status)
		}
		return BookingStatusCancelled, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidState, action)
	}
}

package notifications

import (
	"context"
	"errors"
	"fmt"

	"camrent/internal/domain/pushtokens"

	"github.com/9ssi7/exponent"
)

type BookingEvent string

const (
	BookingConfirmed BookingEvent = "CONFIRMED"
	BookingCancelled BookingEvent = "CANCELLED"
	BookingPickedUp  BookingEvent = "PICKED_UP"
	BookingReturned  BookingEvent = "RETURNED"
	PaymentReceived  BookingEvent = "PAYMENT_RECEIVED"
)

// SendBookingNotification pushes a booking update to every registered device
// of the customer. Missing tokens are an error the caller may choose to log
// and ignore.
func SendBookingNotification(ctx context.Context, push PushSender, tokens pushtokens.Store, userID int64, event BookingEvent, reference string) error {
	tokensMap, err := tokens.GetTokensByUserIDs(ctx, []int64{userID})
	if err != nil {
		return err
	}
	userTokens := tokensMap[userID]
	if len(userTokens) == 0 {
		return errors.New("no push tokens")
	}

	var title, body string
	switch event {
	case BookingConfirmed:
		title = "Booking Confirmed"
		body = fmt.Sprintf("Your booking %s is confirmed. See you at pickup!", reference)
	case BookingCancelled:
		title = "Booking Cancelled"
		body = fmt.Sprintf("Your booking %s has been cancelled.", reference)
	case BookingPickedUp:
		title = "Gear Checked Out"
		body = fmt.Sprintf("Equipment for booking %s has been handed over.", reference)
	case BookingReturned:
		title = "Gear Returned"
		body = fmt.Sprintf("Booking %s is complete. Thanks for renting with us!", reference)
	case PaymentReceived:
		title = "Payment Received"
		body = fmt.Sprintf("We received your payment for booking %s.", reference)
	default:
		title = "Booking Update"
		body = fmt.Sprintf("Your booking %s has an update.", reference)
	}

	msgs := make([]*exponent.Message, 0, len(userTokens))
	for _, t := range userTokens {
		token := exponent.Token(t)
		msg := &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			// data drives deep linking when the notification is tapped
			Data: map[string]string{
				"type":      "booking",
				"event":     string(event),
				"reference": reference,
				"screen":    "my-bookings",
			},
		}
		msgs = append(msgs, msg)
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

// NotifyStaffNewBooking tells every staff device a booking just came in so the
// counter can prepare it. Staff without registered devices are simply skipped.
func NotifyStaffNewBooking(ctx context.Context, push PushSender, tokens pushtokens.Store, staffIDs []int64, reference string) error {
	if len(staffIDs) == 0 {
		return nil
	}

	tokensMap, err := tokens.GetTokensByUserIDs(ctx, staffIDs)
	if err != nil {
		return err
	}

	var msgs []*exponent.Message
	for _, userTokens := range tokensMap {
		for _, t := range userTokens {
			token := exponent.Token(t)
			msgs = append(msgs, &exponent.Message{
				To:    []*exponent.Token{&token},
				Title: "New Booking",
				Body:  fmt.Sprintf("Booking %s was just placed.", reference),
				Data: map[string]string{
					"type":      "booking",
					"event":     "NEW",
					"reference": reference,
					"screen":    "staff-bookings",
				},
			})
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

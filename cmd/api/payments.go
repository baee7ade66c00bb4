package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"camrent/internal/domain/bookings"
	"camrent/internal/domain/paymentsrepo"
	"camrent/internal/domain/storage"
	"camrent/internal/mailer"
	"camrent/internal/notifications"
	"camrent/internal/payments"

	"github.com/go-chi/chi/v5"
)

type InitiatePaymentPayload struct {
	// "deposit" collects the remaining part of the deposit, "balance" the
	// full outstanding amount.
	AmountType string `json:"amount_type" validate:"required,oneof=deposit balance"`
	// optional, defaults to the customer's profile phone
	Phone string `json:"phone,omitempty" validate:"omitempty,kenyanphone"`
}

// initiatePaymentHandler godoc
//
//	@Summary		Initiate an M-Pesa payment
//	@Description	Sends an STK push to the customer's phone for the deposit or the outstanding balance. The payment is recorded pending and finalized by the gateway callback.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int						true	"Booking ID"
//	@Param			payload		body		InitiatePaymentPayload	true	"What to collect"
//	@Success		202			{object}	paymentsrepo.Payment	"Push sent, payment pending"
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		409			{object}	error	"Nothing left to pay"
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID}/payments/initiate [post]
func (app *application) initiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	var payload InitiatePaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if booking.Status == bookings.StatusCancelled {
		app.conflictResponse(w, r, fmt.Errorf("booking %s is cancelled", booking.Reference))
		return
	}

	paid, err := app.store.Payments.SumCompletedForBooking(r.Context(), booking.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	var amount int64
	switch payload.AmountType {
	case "deposit":
		amount = booking.DepositAmount - paid
	case "balance":
		amount = booking.TotalAmount - paid
	}
	if amount <= 0 {
		app.conflictResponse(w, r, fmt.Errorf("nothing left to collect for %s", payload.AmountType))
		return
	}

	phone := payload.Phone
	if phone == "" {
		profile, err := app.store.Profiles.GetByUserID(r.Context(), booking.CustomerID)
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("no phone on file, provide one in the request"))
			return
		}
		phone = profile.Phone
	}

	normalized, err := payments.NormalizePhone(phone)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	pushResp, err := app.payments.InitiatePush(r.Context(), "mpesa", payments.PushRequest{
		Amount:      amount,
		PhoneNumber: normalized,
		Reference:   booking.Reference,
		Description: fmt.Sprintf("CamRent booking %s", booking.Reference),
	})
	if err != nil {
		app.logger.Errorw("stk push failed", "booking", booking.Reference, "error", err)
		app.internalServerError(w, r, err)
		return
	}

	payment := &paymentsrepo.Payment{
		BookingID:   booking.ID,
		Amount:      amount,
		Method:      paymentsrepo.MethodMpesa,
		Status:      paymentsrepo.StatusPending,
		ProviderRef: &pushResp.ProviderRef,
		PhoneNumber: &normalized,
	}
	if err := app.store.Payments.Create(r.Context(), payment); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("stk push sent",
		"booking", booking.Reference,
		"amount", amount,
		"provider_ref", pushResp.ProviderRef,
	)

	if err := app.jsonResponse(w, http.StatusAccepted, payment); err != nil {
		app.internalServerError(w, r, err)
	}
}

// reconcilePayment finalizes a payment and rolls the booking's derived
// payment status forward, all in one transaction. Safe to call twice for the
// same payment: the status guard turns the second call into a no-op.
func (app *application) reconcilePayment(r *http.Request, paymentID int64, success bool, receiptNo, failReason string) (*bookings.Booking, error) {
	var booking *bookings.Booking

	err := app.store.WithRentalTx(r.Context(), func(s *storage.RentalTx) error {
		payment, err := s.Payments.GetByID(r.Context(), paymentID)
		if err != nil {
			return err
		}

		locked, err := s.Bookings.GetByIDForUpdate(r.Context(), payment.BookingID)
		if err != nil {
			return err
		}
		booking = locked

		if success {
			if err := s.Payments.MarkCompleted(r.Context(), payment.ID, receiptNo); err != nil {
				return err
			}
		} else {
			if err := s.Payments.MarkFailed(r.Context(), payment.ID, failReason); err != nil {
				return err
			}
		}

		paid, err := s.Payments.SumCompletedForBooking(r.Context(), locked.ID)
		if err != nil {
			return err
		}

		ps := bookings.DerivePaymentStatus(paid, locked.DepositAmount, locked.TotalAmount)
		if ps != locked.PaymentStatus {
			if err := s.Bookings.SetPaymentStatus(r.Context(), locked.ID, ps); err != nil {
				return err
			}
			locked.PaymentStatus = ps
		}
		return nil
	})
	return booking, err
}

// mpesaCallbackHandler godoc
//
//	@Summary		M-Pesa STK callback
//	@Description	Receives the asynchronous outcome of an STK push from Safaricom. Duplicate deliveries are dropped via a redis marker, and the status guard on the payment row backstops that when redis is down.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/payments/mpesa/callback [post]
func (app *application) mpesaCallbackHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	result, err := payments.ParseCallback(body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	// ack payload Daraja expects regardless of our internal outcome
	ack := map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"}

	first, err := app.cache.MarkOnce(r.Context(), "mpesa:cb:"+result.ProviderRef, 24*time.Hour)
	if err != nil {
		app.logger.Warnw("callback dedup unavailable", "error", err)
	} else if !first {
		app.logger.Infow("duplicate callback dropped", "provider_ref", result.ProviderRef)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	payment, err := app.store.Payments.GetByProviderRef(r.Context(), result.ProviderRef)
	if err != nil {
		app.logger.Errorw("callback for unknown payment", "provider_ref", result.ProviderRef, "error", err)
		writeJSON(w, http.StatusOK, ack)
		return
	}

	booking, err := app.reconcilePayment(r, payment.ID, result.Success, result.ReceiptNo, result.ResultDesc)
	if err != nil {
		if errors.Is(err, paymentsrepo.ErrAlreadyFinalized) {
			writeJSON(w, http.StatusOK, ack)
			return
		}
		app.logger.Errorw("callback reconciliation failed", "provider_ref", result.ProviderRef, "error", err)
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("payment callback processed",
		"provider_ref", result.ProviderRef,
		"success", result.Success,
		"booking", booking.Reference,
		"payment_status", booking.PaymentStatus,
	)

	if result.Success {
		app.notifyBooking(r, booking, notifications.PaymentReceived)
		if booking.PaymentStatus == bookings.PaymentPaid {
			app.sendReceiptEmail(booking, payment.Amount, result.ReceiptNo)
		}
	}

	writeJSON(w, http.StatusOK, ack)
}

func (app *application) sendReceiptEmail(booking *bookings.Booking, amount int64, receiptNo string) {
	user, err := app.store.Users.GetByID(context.Background(), booking.CustomerID)
	if err != nil {
		app.logger.Warnw("receipt email skipped, user lookup failed", "booking", booking.Reference, "error", err)
		return
	}

	vars := struct {
		Username  string
		Reference string
		Amount    int64
		ReceiptNo string
	}{
		Username:  user.FullName,
		Reference: booking.Reference,
		Amount:    amount,
		ReceiptNo: receiptNo,
	}

	if _, err := app.mailer.Send(mailer.BookingReceiptTemplate, user.FullName, user.Email, vars); err != nil {
		app.logger.Warnw("receipt email failed", "booking", booking.Reference, "error", err)
	}
}

type CashPaymentPayload struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

var errOverCollection = errors.New("amount exceeds the outstanding balance")

// recordCashPaymentHandler godoc
//
//	@Summary		Record a cash payment
//	@Description	Records an over-the-counter payment as completed and rolls the booking's payment status forward in the same transaction.
//	@Tags			staff
//	@Accept			json
//	@Produce		json
//	@Param			bookingID	path		int					true	"Booking ID"
//	@Param			payload		body		CashPaymentPayload	true	"Amount received"
//	@Success		201			{object}	bookings.Booking
//	@Failure		400			{object}	ErrorBadRequestResponse
//	@Failure		409			{object}	error	"Amount exceeds what is owed"
//	@Failure		500			{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings/{bookingID}/payments/cash [post]
func (app *application) recordCashPaymentHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	var payload CashPaymentPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	staff := getUserFromContext(r)

	err := app.store.WithRentalTx(r.Context(), func(s *storage.RentalTx) error {
		locked, err := s.Bookings.GetByIDForUpdate(r.Context(), booking.ID)
		if err != nil {
			return err
		}

		alreadyPaid, err := s.Payments.SumCompletedForBooking(r.Context(), locked.ID)
		if err != nil {
			return err
		}
		if payload.Amount > locked.TotalAmount-alreadyPaid {
			return errOverCollection
		}

		cashRef := fmt.Sprintf("CASH-%d-%d", locked.ID, time.Now().Unix())
		payment := &paymentsrepo.Payment{
			BookingID:   locked.ID,
			Amount:      payload.Amount,
			Method:      paymentsrepo.MethodCash,
			Status:      paymentsrepo.StatusCompleted,
			ProviderRef: &cashRef,
			RecordedBy:  &staff.ID,
		}
		if err := s.Payments.Create(r.Context(), payment); err != nil {
			return err
		}

		paid, err := s.Payments.SumCompletedForBooking(r.Context(), locked.ID)
		if err != nil {
			return err
		}

		ps := bookings.DerivePaymentStatus(paid, locked.DepositAmount, locked.TotalAmount)
		if ps != locked.PaymentStatus {
			if err := s.Bookings.SetPaymentStatus(r.Context(), locked.ID, ps); err != nil {
				return err
			}
		}
		booking.PaymentStatus = ps
		return nil
	})
	if err != nil {
		if errors.Is(err, errOverCollection) {
			app.conflictResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("cash payment recorded",
		"booking", booking.Reference,
		"amount", payload.Amount,
		"recorded_by", staff.ID,
		"payment_status", booking.PaymentStatus,
	)

	app.notifyBooking(r, booking, notifications.PaymentReceived)

	if err := app.jsonResponse(w, http.StatusCreated, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listBookingPaymentsHandler godoc
//
//	@Summary		List payments for a booking
//	@Tags			payments
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{array}		paymentsrepo.Payment
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID}/payments [get]
func (app *application) listBookingPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	list, err := app.store.Payments.ListByBooking(r.Context(), booking.ID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, list); err != nil {
		app.internalServerError(w, r, err)
	}
}

// paymentStatusHandler godoc
//
//	@Summary		Check a payment's status
//	@Description	Returns the payment; when it is still pending the gateway is polled, and a terminal answer reconciles the payment the same way a callback would.
//	@Tags			payments
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Param			paymentID	path		int	true	"Payment ID"
//	@Success		200			{object}	paymentsrepo.Payment
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID}/payments/{paymentID}/status [get]
func (app *application) paymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	paymentID, err := strconv.ParseInt(chi.URLParam(r, "paymentID"), 10, 64)
	if err != nil || paymentID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid payment ID"))
		return
	}

	payment, err := app.store.Payments.GetByID(r.Context(), paymentID)
	if err != nil {
		switch err {
		case paymentsrepo.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}
	if payment.BookingID != booking.ID {
		app.notFoundResponse(w, r, paymentsrepo.ErrNotFound)
		return
	}

	// poll the gateway for pending pushes the callback never resolved
	if payment.Status == paymentsrepo.StatusPending && payment.Method == paymentsrepo.MethodMpesa && payment.ProviderRef != nil {
		verify, err := app.payments.VerifyPayment(r.Context(), "mpesa", *payment.ProviderRef)
		if err != nil {
			app.logger.Warnw("gateway verify failed", "provider_ref", *payment.ProviderRef, "error", err)
		} else if verify.Terminal {
			if _, err := app.reconcilePayment(r, payment.ID, verify.Success, "", verify.State); err != nil && !errors.Is(err, paymentsrepo.ErrAlreadyFinalized) {
				app.internalServerError(w, r, err)
				return
			}
			payment, err = app.store.Payments.GetByID(r.Context(), payment.ID)
			if err != nil {
				app.internalServerError(w, r, err)
				return
			}
		}
	}

	if err := app.jsonResponse(w, http.StatusOK, payment); err != nil {
		app.internalServerError(w, r, err)
	}
}

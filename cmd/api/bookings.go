package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"camrent/internal/domain/accesscontrol"
	"camrent/internal/domain/bookings"
	"camrent/internal/domain/inventory"
	"camrent/internal/domain/profiles"
	"camrent/internal/domain/storage"
	"camrent/internal/notifications"

	"github.com/go-chi/chi/v5"
)

type BookingItemPayload struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gt=0"`
}

type BookingPayload struct {
	StartDate string               `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string               `json:"end_date" validate:"required,datetime=2006-01-02"`
	Items     []BookingItemPayload `json:"items" validate:"required,min=1,dive"`
	// share of the total collected up front; defaults to 50
	DepositPercent int     `json:"deposit_percent,omitempty" validate:"omitempty,oneof=30 50 100"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (p *BookingPayload) depositPercent() int {
	if p.DepositPercent == 0 {
		return bookings.DefaultDepositPercent
	}
	return p.DepositPercent
}

// parseBookingWindow validates the payload and returns the parsed dates.
func (app *application) parseBookingWindow(payload *BookingPayload) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", payload.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", payload.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date: %w", err)
	}
	if err := bookings.ValidateDates(start, end, time.Now()); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// priceItems loads each requested item and freezes its current rate into
// quote lines.
func (app *application) priceItems(r *http.Request, items []BookingItemPayload) ([]bookings.QuoteItem, error) {
	quoteItems := make([]bookings.QuoteItem, 0, len(items))
	for _, li := range items {
		item, err := app.store.Inventory.GetByID(r.Context(), li.ItemID)
		if err != nil {
			return nil, err
		}
		if !item.IsActive {
			return nil, fmt.Errorf("item %q is not available for rent", item.Name)
		}
		quoteItems = append(quoteItems, bookings.QuoteItem{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Quantity:  li.Quantity,
			DailyRate: item.DailyRate,
		})
	}
	return quoteItems, nil
}

// quoteBookingHandler godoc
//
//	@Summary		Price a booking
//	@Description	Prices a date range against requested items without reserving anything: inclusive day count, total and 50% deposit.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BookingPayload	true	"Requested dates and items"
//	@Success		200		{object}	bookings.Quote
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error	"Unknown item"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/bookings/quote [post]
func (app *application) quoteBookingHandler(w http.ResponseWriter, r *http.Request) {
	var payload BookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	start, end, err := app.parseBookingWindow(&payload)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	quoteItems, err := app.priceItems(r, payload.Items)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badRequestResponse(w, r, err)
		return
	}

	quote := bookings.ComputeQuote(start, end, payload.depositPercent(), quoteItems)

	if err := app.jsonResponse(w, http.StatusOK, quote); err != nil {
		app.internalServerError(w, r, err)
	}
}

// createBookingHandler godoc
//
//	@Summary		Create a booking
//	@Description	Creates a booking atomically: stock for every line is reserved with guarded decrements, the booking and its line items are written, and the reference code is assigned. If any line lacks stock the whole transaction rolls back and nothing is reserved.
//	@Tags			bookings
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		BookingPayload	true	"Requested dates and items"
//	@Success		201		{object}	bookings.Booking
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	error	"Insufficient stock"
//	@Failure		422		{object}	error	"Rental profile required"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/bookings [post]
func (app *application) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	var payload BookingPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	// a rental profile with ID details must exist before booking
	if _, err := app.store.Profiles.GetByUserID(r.Context(), user.ID); err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			writeJSONError(w, http.StatusUnprocessableEntity, "complete your rental profile before booking")
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	start, end, err := app.parseBookingWindow(&payload)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	quoteItems, err := app.priceItems(r, payload.Items)
	if err != nil {
		if errors.Is(err, inventory.ErrNotFound) {
			app.notFoundResponse(w, r, err)
			return
		}
		app.badRequestResponse(w, r, err)
		return
	}

	quote := bookings.ComputeQuote(start, end, payload.depositPercent(), quoteItems)

	booking := &bookings.Booking{
		CustomerID:    user.ID,
		StartDate:     start,
		EndDate:       end,
		DurationDays:  quote.DurationDays,
		TotalAmount:   quote.TotalAmount,
		DepositAmount: quote.DepositAmount,
		Notes:         payload.Notes,
		Items:         quote.Lines,
	}

	err = app.store.WithRentalTx(r.Context(), func(s *storage.RentalTx) error {
		for _, li := range booking.Items {
			if err := s.Inventory.Reserve(r.Context(), li.ItemID, li.Quantity); err != nil {
				return err
			}
		}

		if err := s.Bookings.Create(r.Context(), booking); err != nil {
			return err
		}

		ref, err := app.refCoder.Encode(booking.ID)
		if err != nil {
			return err
		}
		booking.Reference = ref
		return s.Bookings.SetReference(r.Context(), booking.ID, ref)
	})
	if err != nil {
		var stockErr *inventory.InsufficientStockError
		if errors.As(err, &stockErr) {
			app.conflictResponse(w, r, stockErr)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.logger.Infow("booking created",
		"booking_id", booking.ID,
		"reference", booking.Reference,
		"customer_id", user.ID,
		"total", booking.TotalAmount,
	)

	app.notifyStaffNewBooking(r, booking)

	if err := app.jsonResponse(w, http.StatusCreated, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listMyBookingsHandler godoc
//
//	@Summary		List own bookings
//	@Tags			bookings
//	@Produce		json
//	@Param			limit	query		int	false	"Page size (default 20)"
//	@Param			offset	query		int	false	"Offset"
//	@Success		200		{array}		bookings.Booking
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings [get]
func (app *application) listMyBookingsHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	list, total, err := app.store.Bookings.ListByCustomer(r.Context(), user.ID, limit, offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"bookings": list,
		"total":    total,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// bookingFromRequest loads the booking in the URL and checks the caller may
// see it: the owning customer, or any staff account.
func (app *application) bookingFromRequest(w http.ResponseWriter, r *http.Request) (*bookings.Booking, bool) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "bookingID"), 10, 64)
	if err != nil || bookingID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid booking ID"))
		return nil, false
	}

	booking, err := app.store.Bookings.GetByID(r.Context(), bookingID)
	if err != nil {
		switch err {
		case bookings.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return nil, false
	}

	user := getUserFromContext(r)
	if booking.CustomerID != user.ID && !getRoleFromContext(r).AtLeast(accesscontrol.RoleStaff) {
		app.forbiddenResponse(w, r)
		return nil, false
	}
	return booking, true
}

// getBookingHandler godoc
//
//	@Summary		Get a booking
//	@Description	Returns a booking with its line items. Customers see only their own; staff see any.
//	@Tags			bookings
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID} [get]
func (app *application) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// transitionBooking moves a booking to the next status inside one
// transaction, releasing reserved stock on the terminal edges.
func (app *application) transitionBooking(r *http.Request, booking *bookings.Booking, to bookings.Status) error {
	return app.store.WithRentalTx(r.Context(), func(s *storage.RentalTx) error {
		locked, err := s.Bookings.GetByIDForUpdate(r.Context(), booking.ID)
		if err != nil {
			return err
		}

		if err := s.Bookings.UpdateStatus(r.Context(), locked.ID, locked.Status, to); err != nil {
			return err
		}

		if to.ReleasesStock() {
			for _, li := range locked.Items {
				if err := s.Inventory.Release(r.Context(), li.ItemID, li.Quantity); err != nil {
					return err
				}
			}
		}
		booking.Status = to
		return nil
	})
}

func (app *application) notifyStaffNewBooking(r *http.Request, booking *bookings.Booking) {
	staffIDs, err := app.store.AccessControl.ListUserIDsWithRole(r.Context(), accesscontrol.RoleStaff)
	if err != nil {
		app.logger.Warnw("staff lookup for notification failed", "booking", booking.Reference, "error", err)
		return
	}
	if err := notifications.NotifyStaffNewBooking(
		r.Context(), app.push, app.store.PushTokens, staffIDs, booking.Reference,
	); err != nil {
		app.logger.Warnw("staff push notification failed", "booking", booking.Reference, "error", err)
	}
}

func (app *application) notifyBooking(r *http.Request, booking *bookings.Booking, event notifications.BookingEvent) {
	if err := notifications.SendBookingNotification(
		r.Context(), app.push, app.store.PushTokens, booking.CustomerID, event, booking.Reference,
	); err != nil {
		app.logger.Warnw("push notification failed", "booking", booking.Reference, "event", event, "error", err)
	}
}

// cancelBookingHandler godoc
//
//	@Summary		Cancel own booking
//	@Description	Cancels a pending or confirmed booking and returns its reserved stock. Active rentals cannot be cancelled, they must be returned.
//	@Tags			bookings
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		403			{object}	error
//	@Failure		404			{object}	error
//	@Failure		409			{object}	error	"Not cancellable in its current status"
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/bookings/{bookingID}/cancel [post]
func (app *application) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	booking, ok := app.bookingFromRequest(w, r)
	if !ok {
		return
	}

	if err := app.transitionBooking(r, booking, bookings.StatusCancelled); err != nil {
		if errors.Is(err, bookings.ErrInvalidTransition) {
			app.conflictResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.notifyBooking(r, booking, notifications.BookingCancelled)

	if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listStaffBookingsHandler godoc
//
//	@Summary		List bookings (back office)
//	@Description	Lists bookings joined with the customer and total paid, filterable by status, payment status and free text.
//	@Tags			staff
//	@Produce		json
//	@Param			status			query		string	false	"Booking status"
//	@Param			payment_status	query		string	false	"Payment status"
//	@Param			search			query		string	false	"Reference, customer name or phone"
//	@Param			limit			query		int		false	"Page size (default 20)"
//	@Param			offset			query		int		false	"Offset"
//	@Success		200				{array}		bookings.StaffRow
//	@Failure		500				{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings [get]
func (app *application) listStaffBookingsHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	f := bookings.StaffFilter{
		Status:        bookings.Status(r.URL.Query().Get("status")),
		PaymentStatus: bookings.PaymentStatus(r.URL.Query().Get("payment_status")),
		Search:        r.URL.Query().Get("search"),
		Limit:         limit,
		Offset:        offset,
	}
	if f.Status != "" && !f.Status.Valid() {
		app.badRequestResponse(w, r, fmt.Errorf("unknown status %q", f.Status))
		return
	}

	rows, total, err := app.store.Bookings.ListStaff(r.Context(), f)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"bookings": rows,
		"total":    total,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

func (app *application) staffTransitionHandler(to bookings.Status, event notifications.BookingEvent) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		booking, ok := app.bookingFromRequest(w, r)
		if !ok {
			return
		}

		if err := app.transitionBooking(r, booking, to); err != nil {
			if errors.Is(err, bookings.ErrInvalidTransition) {
				app.conflictResponse(w, r, err)
				return
			}
			app.internalServerError(w, r, err)
			return
		}

		app.notifyBooking(r, booking, event)

		if err := app.jsonResponse(w, http.StatusOK, booking); err != nil {
			app.internalServerError(w, r, err)
		}
	}
}

// confirmBookingHandler godoc
//
//	@Summary		Confirm a booking
//	@Description	Moves a pending booking to confirmed, typically after the deposit is paid.
//	@Tags			staff
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		409			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings/{bookingID}/confirm [post]
func (app *application) confirmBookingHandler(w http.ResponseWriter, r *http.Request) {
	app.staffTransitionHandler(bookings.StatusConfirmed, notifications.BookingConfirmed)(w, r)
}

// pickupBookingHandler godoc
//
//	@Summary		Record equipment pickup
//	@Description	Moves a confirmed booking to active when the customer collects the gear.
//	@Tags			staff
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		409			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings/{bookingID}/pickup [post]
func (app *application) pickupBookingHandler(w http.ResponseWriter, r *http.Request) {
	app.staffTransitionHandler(bookings.StatusActive, notifications.BookingPickedUp)(w, r)
}

// returnBookingHandler godoc
//
//	@Summary		Record equipment return
//	@Description	Completes an active booking and releases the reserved units back to the pool.
//	@Tags			staff
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		409			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings/{bookingID}/return [post]
func (app *application) returnBookingHandler(w http.ResponseWriter, r *http.Request) {
	app.staffTransitionHandler(bookings.StatusCompleted, notifications.BookingReturned)(w, r)
}

// staffCancelBookingHandler godoc
//
//	@Summary		Cancel a booking (back office)
//	@Tags			staff
//	@Produce		json
//	@Param			bookingID	path		int	true	"Booking ID"
//	@Success		200			{object}	bookings.Booking
//	@Failure		409			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/bookings/{bookingID}/cancel [post]
func (app *application) staffCancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	app.staffTransitionHandler(bookings.StatusCancelled, notifications.BookingCancelled)(w, r)
}

package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"camrent/internal/domain/profiles"
	"camrent/internal/params"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
)

type ProfilePayload struct {
	FullName string `json:"full_name" validate:"required,min=1,max=100"`
	Phone    string `json:"phone" validate:"required,kenyanphone"`
	IDNumber string `json:"id_number" validate:"required,min=5,max=20"`
}

// createProfileHandler godoc
//
//	@Summary		Create rental profile
//	@Description	Records the KYC details required before any gear can be released: full name, phone and national ID number.
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ProfilePayload		true	"Profile details"
//	@Success		201		{object}	profiles.Profile	"Profile created"
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/profile [post]
func (app *application) createProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload ProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	profile := &profiles.Profile{
		UserID:   user.ID,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		IDNumber: payload.IDNumber,
	}

	if err := app.store.Profiles.Create(r.Context(), profile); err != nil {
		switch err {
		case profiles.ErrDuplicateIDNumber:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, profile); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getOwnProfileHandler godoc
//
//	@Summary		Get own rental profile
//	@Tags			profile
//	@Produce		json
//	@Success		200	{object}	profiles.Profile
//	@Failure		404	{object}	error	"Profile not created yet"
//	@Failure		500	{object}	error
//	@Security		ApiKeyAuth
//	@Router			/profile [get]
func (app *application) getOwnProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	profile, err := app.store.Profiles.GetByUserID(r.Context(), user.ID)
	if err != nil {
		switch err {
		case profiles.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, profile); err != nil {
		app.internalServerError(w, r, err)
	}
}

// updateProfileHandler godoc
//
//	@Summary		Update rental profile
//	@Tags			profile
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		ProfilePayload	true	"Profile details"
//	@Success		200		{object}	profiles.Profile
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/profile [put]
func (app *application) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var payload ProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	user := getUserFromContext(r)

	profile := &profiles.Profile{
		UserID:   user.ID,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		IDNumber: payload.IDNumber,
	}

	if err := app.store.Profiles.Update(r.Context(), profile); err != nil {
		switch err {
		case profiles.ErrNotFound:
			app.notFoundResponse(w, r, err)
		case profiles.ErrDuplicateIDNumber:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, profile); err != nil {
		app.internalServerError(w, r, err)
	}
}

// uploadIDPhotoHandler godoc
//
//	@Summary		Upload ID photo
//	@Description	Uploads a photo of the customer's national ID and stores the URL on the profile.
//	@Tags			profile
//	@Accept			mpfd
//	@Produce		json
//	@Param			id_photo	formData	file	true	"ID photo, max 4MB"
//	@Success		200			{object}	map[string]string
//	@Failure		400			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/profile/id-photo [post]
func (app *application) uploadIDPhotoHandler(w http.ResponseWriter, r *http.Request) {
	user := getUserFromContext(r)

	err := r.ParseMultipartForm(4 << 20) // 4 MB
	if err != nil {
		http.Error(w, "Unable to parse form, file size limit is 4MB", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("id_photo")
	if err != nil {
		http.Error(w, "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" {
		http.Error(w, "Only JPEG and PNG images are allowed", http.StatusBadRequest)
		return
	}

	uploadParams := uploader.UploadParams{
		PublicID:  fmt.Sprintf("id_%d_%d", user.ID, time.Now().UnixNano()),
		Folder:    "id_photos",
		Overwrite: boolPtr(true),
	}
	uploadResult, err := app.cld.Upload.Upload(r.Context(), file, uploadParams)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("cloudinary upload: %w", err))
		return
	}

	if err := app.store.Profiles.SetIDPhoto(r.Context(), user.ID, uploadResult.SecureURL); err != nil {
		switch err {
		case profiles.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"id_photo_url": uploadResult.SecureURL}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// staffUpsertProfileHandler godoc
//
//	@Summary		Create or update a customer's profile (back office)
//	@Description	Lets staff record or correct a customer's KYC details over the counter, for example when the customer signs up by phone.
//	@Tags			staff
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int				true	"User ID"
//	@Param			payload	body		ProfilePayload	true	"Profile details"
//	@Success		200		{object}	profiles.Profile
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		409		{object}	error	"Duplicate ID number"
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/staff/customers/{userID}/profile [put]
func (app *application) staffUpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid user ID"))
		return
	}

	var payload ProfilePayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	profile := &profiles.Profile{
		UserID:   userID,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		IDNumber: payload.IDNumber,
	}

	err = app.store.Profiles.Update(r.Context(), profile)
	if err == profiles.ErrNotFound {
		err = app.store.Profiles.Create(r.Context(), profile)
	}
	if err != nil {
		switch err {
		case profiles.ErrDuplicateIDNumber:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, profile); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listCustomersHandler godoc
//
//	@Summary		List customers
//	@Description	Back-office customer listing: profile, account status and booking counts in one page. Search matches name, ID number or phone.
//	@Tags			staff
//	@Produce		json
//	@Param			search	query		string	false	"Name, ID number or phone"
//	@Param			limit	query		int		false	"Page size (default 20, max 50)"
//	@Param			page	query		int		false	"Page number (default 1)"
//	@Success		200		{array}		profiles.CustomerRow
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/staff/customers [get]
func (app *application) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	p := params.ParsePagination(r.URL.Query())

	rows, total, err := app.store.Profiles.ListCustomers(r.Context(), search, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"customers":  rows,
		"pagination": p,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

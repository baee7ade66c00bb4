package main

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"camrent/internal/domain/inventory"
	"camrent/internal/params"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/go-chi/chi/v5"
)

type CreateItemPayload struct {
	Name          string  `json:"name" validate:"required,min=2,max=150"`
	Category      string  `json:"category" validate:"required,min=2,max=50"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	DailyRate     int64   `json:"daily_rate" validate:"required,gt=0"`
	TotalQuantity int     `json:"total_quantity" validate:"required,gt=0"`
}

// createInventoryItemHandler godoc
//
//	@Summary		Add an inventory item
//	@Description	Adds a rentable item to the catalog. Available stock starts equal to total quantity.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			payload	body		CreateItemPayload	true	"Item details"
//	@Success		201		{object}	inventory.Item
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/inventory [post]
func (app *application) createInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	var payload CreateItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	item := &inventory.Item{
		Name:          payload.Name,
		Category:      payload.Category,
		Description:   payload.Description,
		DailyRate:     payload.DailyRate,
		TotalQuantity: payload.TotalQuantity,
	}

	if err := app.store.Inventory.Create(r.Context(), item); err != nil {
		switch err {
		case inventory.ErrDuplicateName:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusCreated, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// listInventoryHandler godoc
//
//	@Summary		Browse the catalog
//	@Description	Lists active inventory items with live availability, optionally filtered by category.
//	@Tags			inventory
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"
//	@Param			limit		query		int		false	"Page size (default 20, max 50)"
//	@Param			page		query		int		false	"Page number (default 1)"
//	@Success		200			{array}		inventory.Item
//	@Failure		500			{object}	error
//	@Router			/inventory [get]
func (app *application) listInventoryHandler(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	p := params.ParsePagination(r.URL.Query())

	items, total, err := app.store.Inventory.List(r.Context(), category, p.Limit, p.Offset)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}
	p.ComputeMeta(total)

	if err := app.jsonResponse(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": p,
	}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// getInventoryItemHandler godoc
//
//	@Summary		Get an inventory item
//	@Tags			inventory
//	@Produce		json
//	@Param			itemID	path		int	true	"Item ID"
//	@Success		200		{object}	inventory.Item
//	@Failure		404		{object}	error
//	@Failure		500		{object}	error
//	@Router			/inventory/{itemID} [get]
func (app *application) getInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid item ID"))
		return
	}

	item, err := app.store.Inventory.GetByID(r.Context(), itemID)
	if err != nil {
		switch err {
		case inventory.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

type UpdateItemPayload struct {
	Name          string  `json:"name" validate:"required,min=2,max=150"`
	Category      string  `json:"category" validate:"required,min=2,max=50"`
	Description   *string `json:"description,omitempty" validate:"omitempty,max=2000"`
	DailyRate     int64   `json:"daily_rate" validate:"required,gt=0"`
	TotalQuantity int     `json:"total_quantity" validate:"required,gt=0"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// updateInventoryItemHandler godoc
//
//	@Summary		Update an inventory item
//	@Description	Updates catalog fields and total quantity. Rate changes never reprice existing bookings; shrinking the total never touches units already reserved.
//	@Tags			inventory
//	@Accept			json
//	@Produce		json
//	@Param			itemID	path		int					true	"Item ID"
//	@Param			payload	body		UpdateItemPayload	true	"Item details"
//	@Success		200		{object}	inventory.Item
//	@Failure		400		{object}	ErrorBadRequestResponse
//	@Failure		404		{object}	error
//	@Failure		500		{object}	ErrorInternalServerResponse
//	@Security		ApiKeyAuth
//	@Router			/inventory/{itemID} [patch]
func (app *application) updateInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid item ID"))
		return
	}

	var payload UpdateItemPayload
	if err := readJSON(w, r, &payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := Validate.Struct(payload); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}

	item := &inventory.Item{
		ID:            itemID,
		Name:          payload.Name,
		Category:      payload.Category,
		Description:   payload.Description,
		DailyRate:     payload.DailyRate,
		TotalQuantity: payload.TotalQuantity,
		IsActive:      isActive,
	}

	if err := app.store.Inventory.Update(r.Context(), item); err != nil {
		switch err {
		case inventory.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, item); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteInventoryItemHandler godoc
//
//	@Summary		Delete an inventory item
//	@Description	Removes an item from the catalog. Fails with 409 when bookings reference it; deactivate instead.
//	@Tags			inventory
//	@Produce		json
//	@Param			itemID	path		int		true	"Item ID"
//	@Success		204		{string}	string	"Deleted"
//	@Failure		404		{object}	error
//	@Failure		409		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/inventory/{itemID} [delete]
func (app *application) deleteInventoryItemHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid item ID"))
		return
	}

	if err := app.store.Inventory.Delete(r.Context(), itemID); err != nil {
		switch err {
		case inventory.ErrNotFound:
			app.notFoundResponse(w, r, err)
		case inventory.ErrItemInUse:
			app.conflictResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// uploadItemPhotoHandler godoc
//
//	@Summary		Upload an item photo
//	@Tags			inventory
//	@Accept			mpfd
//	@Produce		json
//	@Param			itemID	path		int		true	"Item ID"
//	@Param			photo	formData	file	true	"Item photo, max 4MB"
//	@Success		200		{object}	map[string]string
//	@Failure		400		{object}	error
//	@Failure		500		{object}	error
//	@Security		ApiKeyAuth
//	@Router			/inventory/{itemID}/photos [post]
func (app *application) uploadItemPhotoHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid item ID"))
		return
	}

	if err := r.ParseMultipartForm(4 << 20); err != nil {
		http.Error(w, "Unable to parse form, file size limit is 4MB", http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("photo")
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
		PublicID: fmt.Sprintf("item_%d_%d", itemID, time.Now().UnixNano()),
		Folder:   "inventory",
	}
	uploadResult, err := app.cld.Upload.Upload(r.Context(), file, uploadParams)
	if err != nil {
		app.internalServerError(w, r, fmt.Errorf("cloudinary upload: %w", err))
		return
	}

	if err := app.store.Inventory.AddImageURL(r.Context(), itemID, uploadResult.SecureURL); err != nil {
		switch err {
		case inventory.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.jsonResponse(w, http.StatusOK, map[string]string{"image_url": uploadResult.SecureURL}); err != nil {
		app.internalServerError(w, r, err)
	}
}

// deleteItemPhotoHandler godoc
//
//	@Summary		Delete an item photo
//	@Description	Removes a photo URL from the item and deletes the asset from Cloudinary. DELETE /inventory/{itemID}/photos?photo_url={url}
//	@Tags			inventory
//	@Produce		json
//	@Param			itemID		path		int		true	"Item ID"
//	@Param			photo_url	query		string	true	"Photo URL to remove"
//	@Success		204			{string}	string	"Deleted"
//	@Failure		400			{object}	error
//	@Failure		404			{object}	error
//	@Failure		500			{object}	error
//	@Security		ApiKeyAuth
//	@Router			/inventory/{itemID}/photos [delete]
func (app *application) deleteItemPhotoHandler(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil || itemID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid item ID"))
		return
	}

	photoURL := r.URL.Query().Get("photo_url")
	if photoURL == "" {
		app.badRequestResponse(w, r, fmt.Errorf("photo_url query parameter is required"))
		return
	}

	if err := app.store.Inventory.RemoveImageURL(r.Context(), itemID, photoURL); err != nil {
		switch err {
		case inventory.ErrNotFound:
			app.notFoundResponse(w, r, err)
		default:
			app.internalServerError(w, r, err)
		}
		return
	}

	if err := app.deletePhotoFromCloudinary(photoURL); err != nil {
		app.logger.Errorw("error deleting cloudinary asset", "url", photoURL, "error", err)
	}

	w.WriteHeader(http.StatusNoContent)
}

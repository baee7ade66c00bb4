package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"camrent/internal/domain/accesscontrol"

	"github.com/go-chi/chi/v5"
)

type assignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=customer staff admin superadmin"`
}

// listRolesHandler godoc
//
//	@Summary		List roles
//	@Description	Returns the closed set of roles the system knows, in priority order.
//	@Tags			admin
//	@Produce		json
//	@Success		200	{array}		accesscontrol.Role
//	@Failure		500	{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/admin/roles [get]
func (app *application) listRolesHandler(w http.ResponseWriter, r *http.Request) {
	roles, err := app.store.AccessControl.ListRoles(r.Context())
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, roles)
}

// adminAssignUserRoleHandler godoc
//
//	@Summary		Assign a role to a user
//	@Description	Assigns a role (by name) to the specified user. Assigning an already held role is a no-op.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			body	body		assignRoleRequest	true	"Role assignment payload"
//	@Success		200		{object}	map[string]string	"Role assigned successfully"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles [post]
func (app *application) adminAssignUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userID"))
		return
	}

	var in assignRoleRequest
	if err := readJSON(w, r, &in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := Validate.Struct(in); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.store.AccessControl.AssignRole(ctx, userID, accesscontrol.RoleName(in.Role)); err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "role assigned",
	})
}

// adminRemoveUserRoleHandler godoc
//
//	@Summary		Remove a role from a user
//	@Description	Removes a specific role from a user by role name.
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int					true	"User ID"
//	@Param			role	path		string				true	"Role name"
//	@Success		200		{object}	map[string]string	"Role removed successfully"
//	@Failure		400		{object}	error				"Bad Request"
//	@Failure		404		{object}	error				"Role not found for user"
//	@Failure		500		{object}	error				"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles/{role} [delete]
func (app *application) adminRemoveUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userid"))
		return
	}

	role := accesscontrol.RoleName(chi.URLParam(r, "role"))
	if !role.Valid() {
		app.badRequestResponse(w, r, fmt.Errorf("unknown role %q", role))
		return
	}

	if err := app.store.AccessControl.RemoveRole(ctx, userID, role); err != nil {
		// repo returns fmt.Errorf("role not found...") when no row is affected and we can map that to 404
		if strings.Contains(err.Error(), "role not found") {
			app.notFoundResponse(w, r, err)
			return
		}
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, map[string]string{
		"message": "role removed",
	})
}

// adminGetUserRolesHandler godoc
//
//	@Summary		List roles for a user
//	@Description	Returns all roles assigned to the given user.
//	@Tags			admin
//	@Produce		json
//	@Param			userID	path		int	true	"User ID"
//	@Success		200		{array}		accesscontrol.Role
//	@Failure		400		{object}	error	"Bad Request"
//	@Failure		500		{object}	error	"Internal Server Error"
//	@Security		ApiKeyAuth
//	@Router			/admin/users/{userID}/roles [get]
func (app *application) adminGetUserRolesHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		app.badRequestResponse(w, r, fmt.Errorf("invalid userid"))
		return
	}

	roles, err := app.store.AccessControl.GetUserRoles(ctx, userID)
	if err != nil {
		app.internalServerError(w, r, err)
		return
	}

	app.jsonResponse(w, http.StatusOK, roles)
}

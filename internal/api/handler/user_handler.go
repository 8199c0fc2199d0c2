package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/watchdeck/user-api/internal/api/metrics"
	"github.com/watchdeck/user-api/internal/core/domain"
	"github.com/watchdeck/user-api/internal/core/policy"
	"github.com/watchdeck/user-api/internal/core/ports"
)

// UserHandler handles HTTP requests for user accounts and watch lists.
// Failures are returned to the central error handler.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /users.
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	users, err := h.service.ListAll(c.Request().Context(), claim)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponses(users))
}

// Get handles GET /users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	user, err := h.service.GetByID(c.Request().Context(), claim, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Create handles POST /users. No authentication is required and the new
// account always gets the USER role.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "Credentials"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	metrics.UsersCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// Edit handles PATCH /users/:id.
//
// @Summary      Edit a user
// @Description  Omitted fields keep their value. Only an ADMIN may grant the ADMIN role.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "User id"
// @Param        body  body      editUserRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id} [patch]
func (h *UserHandler) Edit(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	var req editUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Edit(c.Request().Context(), claim, c.Param("id"), policy.EditRequest{
		Username: req.Username,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), claim, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AddMovie handles POST /users/:id/watchlist/movie.
//
// @Summary      Add a movie to a watch list
// @Tags         watchlist
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "User id"
// @Param        body  body      watchItemRequest  true  "Movie reference"
// @Success      200   {object}  watchItemCreatedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id}/watchlist/movie [post]
func (h *UserHandler) AddMovie(c echo.Context) error {
	return h.addWatchItem(c, domain.WatchKindMovie)
}

// AddTV handles POST /users/:id/watchlist/tv.
//
// @Summary      Add a TV show to a watch list
// @Tags         watchlist
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string            true  "User id"
// @Param        body  body      watchItemRequest  true  "TV show reference"
// @Success      200   {object}  watchItemCreatedResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id}/watchlist/tv [post]
func (h *UserHandler) AddTV(c echo.Context) error {
	return h.addWatchItem(c, domain.WatchKindTV)
}

func (h *UserHandler) addWatchItem(c echo.Context, kind domain.WatchKind) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	var req watchItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	id, err := h.service.AddWatchItem(c.Request().Context(), claim, c.Param("id"), ports.WatchItemInput{
		Kind:  kind,
		RefID: req.RefID,
		Title: req.Title,
	})
	if err != nil {
		return err
	}

	metrics.WatchItemsAddedTotal.WithLabelValues(string(kind)).Inc()
	return c.JSON(http.StatusOK, watchItemCreatedResponse{ID: id})
}

// WatchList handles GET /users/:id/watchlist.
//
// @Summary      Get a user's watch list
// @Tags         watchlist
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {array}   watchItemResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id}/watchlist [get]
func (h *UserHandler) WatchList(c echo.Context) error {
	claim, err := ctxClaim(c)
	if err != nil {
		return err
	}

	items, err := h.service.GetWatchList(c.Request().Context(), claim, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toWatchItemResponses(items))
}

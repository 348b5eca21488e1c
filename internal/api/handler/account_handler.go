package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/userhub/identity-service/internal/api/session"
	"github.com/userhub/identity-service/internal/core/domain"
	"github.com/userhub/identity-service/internal/core/ports"
)

// AccountHandler handles HTTP requests for the account operations.
type AccountHandler struct {
	accounts  ports.AccountService
	testUsers int
}

// NewAccountHandler builds the handler. testUsers is the number of users
// GET /spam generates when no count is given.
func NewAccountHandler(accounts ports.AccountService, testUsers int) *AccountHandler {
	return &AccountHandler{accounts: accounts, testUsers: testUsers}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  Response{content=domain.UserView}
// @Failure      400   {object}  Response
// @Router       /register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	user, err := h.accounts.Register(c.Request().Context(), ports.RegisterInput{
		Username:  req.Username,
		Password1: req.Password1,
		Password2: req.Password2,
		Email:     req.Email,
		Language:  req.language(),
	})
	record("register", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, Response{
		Message: "User successfully created. Log in to continue.",
		Content: user.View(),
	})
}

// Login verifies credentials and opens a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      loginRequest  true  "Credentials"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      404   {object}  Response
// @Failure      503   {object}  Response
// @Router       /login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.accounts.Login(c.Request().Context(), req.Username, req.Password)
	record("login", err)
	if err != nil {
		return err
	}
	if err := session.FromContext(c).Start(c, res.Token.AccessToken); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		Message: "Successfully logged in.",
		Content: loginContent(res.User.View(), res.Token.Fields),
	})
}

// Logout revokes the session token. The session is kept when revocation
// fails so the caller can retry.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  Response
// @Failure      418  {object}  Response
// @Failure      503  {object}  Response
// @Router       /logout [get]
func (h *AccountHandler) Logout(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	err = h.accounts.Logout(c.Request().Context(), token)
	record("logout", err)
	if err != nil {
		return err
	}
	if err := session.FromContext(c).Clear(c); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{Message: "Logged out."})
}

// GetMe returns the caller's own projection.
//
// @Summary      Current user
// @Tags         me
// @Produce      json
// @Success      200  {object}  Response{content=domain.UserView}
// @Failure      400  {object}  Response
// @Failure      418  {object}  Response
// @Router       /me [get]
func (h *AccountHandler) GetMe(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.Me(c.Request().Context(), token)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{Message: "Success", Content: user.View()})
}

// UpdateMe changes the caller's password or language.
//
// @Summary      Update current user
// @Tags         me
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        body  body      updateMeRequest  true  "Either old_password+password1+password2 or language"
// @Success      200   {object}  Response
// @Failure      400   {object}  Response
// @Failure      401   {object}  Response
// @Failure      418   {object}  Response
// @Router       /me [put]
func (h *AccountHandler) UpdateMe(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}
	var req updateMeRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}

	res, err := h.accounts.UpdateMe(c.Request().Context(), token, ports.UpdateMeInput{
		OldPassword: req.OldPassword,
		Password1:   req.Password1,
		Password2:   req.Password2,
		Language:    req.Language,
	})
	record("update_me", err)
	if err != nil {
		return err
	}

	msg := "Password changed."
	if res.Outcome == ports.LanguageChanged {
		msg = fmt.Sprintf("Language changed to %s for user %s.", res.User.Language, res.User.Username)
	}
	return c.JSON(http.StatusOK, Response{Message: msg})
}

// DeleteMe removes the caller's account and logs them out.
//
// @Summary      Delete current user
// @Tags         me
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      418  {object}  Response
// @Failure      503  {object}  Response
// @Router       /me [delete]
func (h *AccountHandler) DeleteMe(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.DeleteMe(c.Request().Context(), token)
	record("delete_me", err)
	if err != nil {
		// Includes the deleted-but-not-revoked case: the session is kept so
		// the caller can retry the logout.
		return err
	}
	if err := session.FromContext(c).Clear(c); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		Message: fmt.Sprintf("Successfully deleted user %s (%s).", user.Username, user.ID),
	})
}

// GetUser is the public lookup by id.
//
// @Summary      Get user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  Response{content=domain.UserView}
// @Failure      404  {object}  Response
// @Router       /user/{id} [get]
func (h *AccountHandler) GetUser(c echo.Context) error {
	user, err := h.accounts.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Message: "Success", Content: user.View()})
}

// DeleteUser removes any account. Admin only.
//
// @Summary      Delete user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      401  {object}  Response
// @Failure      418  {object}  Response
// @Router       /user/{id} [delete]
func (h *AccountHandler) DeleteUser(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	user, err := h.accounts.DeleteUser(c.Request().Context(), token, c.Param("id"))
	record("delete_user", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		Message: fmt.Sprintf("User %s (%s) successfully deleted.", user.Username, user.ID),
	})
}

// ListUsers returns usernames, or full projections for administrators.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {object}  Response
// @Failure      400  {object}  Response
// @Failure      418  {object}  Response
// @Router       /users [get]
func (h *AccountHandler) ListUsers(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	list, err := h.accounts.ListUsers(c.Request().Context(), token)
	if err != nil {
		return err
	}

	if !list.Detailed {
		return c.JSON(http.StatusOK, Response{
			Message: "Success. Get admin privileges for more detailed info.",
			Content: usernames(list.Users),
		})
	}
	return c.JSON(http.StatusOK, Response{Message: "Success.", Content: views(list.Users)})
}

// GenerateTestUsers creates random accounts on the reserved test domain.
// Development only.
//
// @Summary      Generate test users
// @Tags         dev
// @Produce      json
// @Param        count  query     int  false  "Number of users (max 1000)"
// @Success      201    {object}  Response
// @Failure      400    {object}  Response
// @Failure      401    {object}  Response
// @Failure      418    {object}  Response
// @Router       /spam [get]
func (h *AccountHandler) GenerateTestUsers(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}
	var req spamRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidPayload
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	count := req.Count
	if count == 0 {
		count = h.testUsers
	}

	n, err := h.accounts.GenerateTestUsers(c.Request().Context(), token, count)
	record("generate_test_users", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, Response{
		Message: fmt.Sprintf("Succesfully generated %d random test users.", n),
	})
}

// PurgeTestUsers deletes every account on the reserved test domain.
// Development only.
//
// @Summary      Purge test users
// @Tags         dev
// @Produce      json
// @Success      200  {object}  Response
// @Failure      401  {object}  Response
// @Failure      418  {object}  Response
// @Router       /purge [delete]
func (h *AccountHandler) PurgeTestUsers(c echo.Context) error {
	token, err := sessionToken(c)
	if err != nil {
		return err
	}

	n, err := h.accounts.PurgeTestUsers(c.Request().Context(), token)
	record("purge_test_users", err)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, Response{
		Message: "Test users purged successfully",
		Content: map[string]int{"purged": n},
	})
}

var errInvalidPayload = &domain.Error{Kind: domain.ErrInvalidArgument, Message: "Invalid payload."}


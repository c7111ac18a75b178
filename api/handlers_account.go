package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/middleware/jwtware"
)

func (ctrl *Controller) Me(c *fiber.Ctx) error {
	id, err := currentAccountID(c)
	if err != nil {
		return err
	}

	account, err := ctrl.Service.Profile(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(accounts.NewAccountDetail(account))
}

func (ctrl *Controller) UpdateMe(c *fiber.Ctx) error {
	id, err := currentAccountID(c)
	if err != nil {
		return err
	}

	var update accounts.ProfileUpdate
	if err := parseBody(c, &update); err != nil {
		return err
	}

	account, err := ctrl.Service.UpdateProfile(c.UserContext(), id, update)
	if err != nil {
		return err
	}

	return c.JSON(accounts.NewAccountDetail(account))
}

func (ctrl *Controller) UpdateAvatar(c *fiber.Ctx) error {
	id, err := currentAccountID(c)
	if err != nil {
		return err
	}

	upload, closer, err := ctrl.formAvatar(c, "file", true)
	if err != nil {
		return err
	}
	defer closer.Close()

	account, err := ctrl.Service.UpdateAvatar(c.UserContext(), id, *upload)
	if err != nil {
		return err
	}

	return c.JSON(accounts.NewAccountDetail(account))
}

func (ctrl *Controller) ChangePassword(c *fiber.Ctx) error {
	id, err := currentAccountID(c)
	if err != nil {
		return err
	}

	var msg accounts.ChangePasswordMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	if err := ctrl.Service.ChangePassword(c.UserContext(), id, msg.OldPassword, msg.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "password updated"})
}

func (ctrl *Controller) ApplyCreator(c *fiber.Ctx) error {
	id, err := currentAccountID(c)
	if err != nil {
		return err
	}

	account, err := ctrl.Service.ApplyCreator(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "creator application submitted",
		"user":    accounts.NewAccountDetail(account),
	})
}

func (ctrl *Controller) PublicProfile(c *fiber.Ctx) error {
	profile, err := ctrl.Service.PublicProfile(c.UserContext(), c.Params("username"))
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func currentClaims(c *fiber.Ctx) (accounts.AuthClaims, error) {
	if claims, ok := accounts.ClaimsFromContext(c.UserContext()); ok {
		return claims, nil
	}
	claims, ok := jwtware.ClaimsFromLocals(c, jwtware.DefaultContextKey)
	if !ok {
		return nil, accounts.ErrMissingToken
	}
	return claims, nil
}

func currentAccountID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := currentClaims(c)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, accounts.ErrInvalidToken
	}
	return id, nil
}

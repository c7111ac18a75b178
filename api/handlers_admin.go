package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	accounts "github.com/goliatone/go-accounts"
)

type adminAction func(ctx context.Context, admin accounts.ActorRef, username string, opts ...accounts.TransitionOption) (*accounts.Account, error)

type adminActionRequest struct {
	Reason string `json:"reason"`
}

func (ctrl *Controller) ListCreatorApplications(c *fiber.Ctx) error {
	records, err := ctrl.Service.ListCreatorApplications(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(accounts.NewAccountDetails(records))
}

func (ctrl *Controller) ListAccounts(c *fiber.Ctx) error {
	records, err := ctrl.Service.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(accounts.NewAccountDetails(records))
}

func (ctrl *Controller) ApproveCreator(c *fiber.Ctx) error {
	return ctrl.runAdminAction(c, ctrl.Service.ApproveCreator)
}

func (ctrl *Controller) RejectCreator(c *fiber.Ctx) error {
	return ctrl.runAdminAction(c, ctrl.Service.RejectCreator)
}

func (ctrl *Controller) Suspend(c *fiber.Ctx) error {
	return ctrl.runAdminAction(c, ctrl.Service.Suspend)
}

func (ctrl *Controller) Reactivate(c *fiber.Ctx) error {
	return ctrl.runAdminAction(c, ctrl.Service.Reactivate)
}

func (ctrl *Controller) Block(c *fiber.Ctx) error {
	return ctrl.runAdminAction(c, ctrl.Service.Block)
}

func (ctrl *Controller) AssignRole(c *fiber.Ctx) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	var msg accounts.AssignRoleMessage
	if err := parseValid(c, &msg); err != nil {
		return err
	}

	account, err := ctrl.Service.AssignRole(c.UserContext(), accounts.AdminActor(claims), c.Params("username"), msg.Role)
	if err != nil {
		return err
	}

	return c.JSON(accounts.NewAccountDetail(account))
}

// runAdminAction applies action to the :username param. An optional JSON
// body may carry a reason that is recorded with the transition.
func (ctrl *Controller) runAdminAction(c *fiber.Ctx, action adminAction) error {
	claims, err := currentClaims(c)
	if err != nil {
		return err
	}

	var opts []accounts.TransitionOption
	if len(c.Body()) > 0 {
		var body adminActionRequest
		if err := c.BodyParser(&body); err == nil && body.Reason != "" {
			opts = append(opts, accounts.WithTransitionReason(body.Reason))
		}
	}

	account, err := action(c.UserContext(), accounts.AdminActor(claims), c.Params("username"), opts...)
	if err != nil {
		return err
	}

	return c.JSON(accounts.NewAccountDetail(account))
}

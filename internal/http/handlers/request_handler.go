package handlers

import (
	"pickhub/internal/domain"
	"pickhub/internal/repos"
	"pickhub/internal/services"

	"github.com/gofiber/fiber/v2"
)

type createRequestBody struct {
	Name     string              `json:"name"`
	Priority string              `json:"priority"`
	Notes    string              `json:"notes"`
	Items    []services.ItemSpec `json:"items"`
}

func (d Deps) CreateRequest(c *fiber.Ctx) error {
	var body createRequestBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, domain.ErrInvalidInput("malformed JSON body"))
	}
	req, err := d.Lifecycle.Create(currentUser(c), body.Name, body.Items, body.Priority, body.Notes)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (d Deps) ListRequests(c *fiber.Ctx) error {
	f := repos.ListFilter{
		Status: domain.RequestStatus(c.Query("status")),
		Active: c.QueryBool("active"),
	}
	if f.Status != "" && !f.Status.Valid() {
		return fail(c, domain.ErrInvalidInput("unknown status: "+string(f.Status)))
	}
	if c.QueryBool("mine") {
		f.PickedBy = currentUser(c).ID
	}
	reqs, err := d.Lifecycle.List(f)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"requests": reqs, "count": len(reqs)})
}

func (d Deps) GetRequest(c *fiber.Ctx) error {
	req, err := d.Lifecycle.Get(c.Params("name"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(req)
}

// Workflow dispatches the lifecycle verbs exposed as
// POST /requests/:name/:action.
func (d Deps) Workflow(c *fiber.Ctx) error {
	u := currentUser(c)
	name := c.Params("name")

	var (
		req *domain.PickRequest
		err error
	)
	switch action := c.Params("action"); action {
	case "start":
		req, err = d.Lifecycle.Start(u, name)
	case "pause":
		req, err = d.Lifecycle.Pause(u, name)
	case "resume":
		req, err = d.Lifecycle.Resume(u, name)
	case "submit":
		req, err = d.Lifecycle.Submit(u, name)
	case "approve":
		req, err = d.Lifecycle.Approve(u, name)
	case "release":
		req, err = d.Lifecycle.ReleaseLock(u, name)
	case "cancel":
		req, err = d.Lifecycle.Cancel(u, name)
	default:
		return fail(c, domain.ErrInvalidInput("unknown action: "+action))
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(req)
}

type itemQtyBody struct {
	Quantity int `json:"quantity"`
}

// UpdateItem sets a line's picked quantity over REST; the picker UI normally
// does this over its live session, this is the fallback path.
func (d Deps) UpdateItem(c *fiber.Ctx) error {
	var body itemQtyBody
	if err := c.BodyParser(&body); err != nil {
		return fail(c, domain.ErrInvalidInput("malformed JSON body"))
	}
	out, err := d.Lifecycle.SetItemQty(currentUser(c), c.Params("name"), c.Params("upc"), body.Quantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

func (d Deps) DeleteRequest(c *fiber.Ctx) error {
	if err := d.Lifecycle.Delete(currentUser(c), c.Params("name")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

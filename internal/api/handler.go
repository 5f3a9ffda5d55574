package api

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"forge-backend/internal/engine"
	"forge-backend/internal/metadata"
	"forge-backend/internal/store"
)

// Handler adapts HTTP requests onto executor operations. It is thin glue:
// it parses the body, injects the path id under the model's key field, and
// translates typed errors into the JSON error envelope.
type Handler struct {
	exec     *engine.Executor
	registry *metadata.Registry
}

func NewHandler(exec *engine.Executor, reg *metadata.Registry) *Handler {
	return &Handler{exec: exec, registry: reg}
}

// Create handles POST /api/:type
func (h *Handler) Create(c *fiber.Ctx) error {
	req, err := h.buildRequest(c, false)
	if err != nil {
		return err
	}
	resp, err := h.exec.Create(c.Context(), req)
	if err != nil {
		return h.respond(c, err)
	}
	return respondData(c, fiber.StatusCreated, resp)
}

// Update handles PUT /api/:type/:id
func (h *Handler) Update(c *fiber.Ctx) error {
	req, err := h.buildRequest(c, true)
	if err != nil {
		return err
	}
	resp, err := h.exec.Update(c.Context(), req)
	if err != nil {
		return h.respond(c, err)
	}
	return respondData(c, fiber.StatusOK, resp)
}

// Patch handles PATCH /api/:type/:id
func (h *Handler) Patch(c *fiber.Ctx) error {
	req, err := h.buildRequest(c, true)
	if err != nil {
		return err
	}
	resp, err := h.exec.Patch(c.Context(), req)
	if err != nil {
		return h.respond(c, err)
	}
	return respondData(c, fiber.StatusOK, resp)
}

// Delete handles DELETE /api/:type/:id and DELETE /api/:type. Without a
// path id the body's fields become the delete filter.
func (h *Handler) Delete(c *fiber.Ctx) error {
	req, err := h.buildRequest(c, false)
	if err != nil {
		return err
	}
	resp, err := h.exec.Delete(c.Context(), req)
	if err != nil {
		return h.respond(c, err)
	}
	return respondData(c, fiber.StatusOK, resp)
}

// Save handles POST /api/:type/save
func (h *Handler) Save(c *fiber.Ctx) error {
	req, err := h.buildRequest(c, false)
	if err != nil {
		return err
	}
	resp, err := h.exec.Save(c.Context(), req)
	if err != nil {
		return h.respond(c, err)
	}
	return respondData(c, fiber.StatusOK, resp)
}

// buildRequest parses the body and assembles the typed request. A path id,
// when present, is written into the values under the model's key field.
func (h *Handler) buildRequest(c *fiber.Ctx, requireID bool) (*engine.Request, error) {
	typeName := c.Params("type")
	desc := h.registry.GetDescriptor(typeName)
	if desc == nil {
		return nil, respondError(c, engine.UnknownTypeError(typeName))
	}

	values := map[string]any{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&values); err != nil {
			return nil, respondError(c, engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Invalid JSON body"))
		}
	}

	if id := c.Params("id"); id != "" {
		model := h.registry.GetModel(desc.Model)
		if model == nil {
			return nil, respondError(c, engine.UnknownTypeError(desc.Model))
		}
		values[model.PrimaryKey.Field] = id
	} else if requireID {
		return nil, respondError(c, engine.MissingArgumentError("record id is required"))
	}

	return &engine.Request{
		Type:   typeName,
		Values: values,
		Actor:  getActor(c),
	}, nil
}

func (h *Handler) respond(c *fiber.Ctx, err error) error {
	var appErr *engine.AppError
	if errors.As(err, &appErr) {
		return respondError(c, appErr)
	}
	if errors.Is(err, store.ErrUniqueViolation) {
		return respondError(c, engine.IntegrityViolationError("a record with this value already exists"))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return respondError(c, engine.NewAppError("TIMEOUT", fiber.StatusRequestTimeout, "Request cancelled"))
	}
	return err
}

func respondData(c *fiber.Ctx, status int, resp map[string]any) error {
	if resp == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(status).JSON(fiber.Map{"data": resp})
}

func respondError(c *fiber.Ctx, appErr *engine.AppError) error {
	return c.Status(appErr.Status).JSON(engine.ErrorResponse{Error: appErr})
}

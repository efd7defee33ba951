package imports

import (
	"context"
	"mime/multipart"

	"course-importer/core/adapter"
	"course-importer/core/logger"
	"course-importer/core/progress"
	"course-importer/core/reconcile"
	"course-importer/core/upload"
	"course-importer/core/utils"

	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// requestError reports a malformed request field.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

// Handler handles HTTP requests for imports.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the import routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/imports")
	group.Get("/adapters", h.HandleListAdapters)
	group.Post("/validate", h.HandleValidate)
	group.Post("/", h.HandleImport)
	group.Get("/progress/:id", h.HandleGetProgress)
	group.Delete("/progress/:id", h.HandleCleanupProgress)
}

// HandleListAdapters lists the registered adapters and their formats.
func (h *Handler) HandleListAdapters(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"adapters": h.service.Adapters(),
		"default":  h.service.DefaultAdapter(),
	})
}

// HandleValidate validates an uploaded document and previews its conflicts.
// Form fields: file, adapter_id, institution_id.
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, l, &requestError{msg: "file is required"})
	}
	if err := h.service.CheckAdapter(c.FormValue("adapter_id"), fh.Filename); err != nil {
		return h.fail(c, l, err)
	}

	var summary *ValidationSummary
	err = h.withUpload(fh, l, func(tmp *upload.TempFile) error {
		var vErr error
		summary, vErr = h.service.Validate(c.UserContext(), tmp.Document(), c.FormValue("adapter_id"), c.FormValue("institution_id"))
		return vErr
	})
	if err != nil {
		return h.fail(c, l, err)
	}
	return c.JSON(summary)
}

// HandleImport imports an uploaded document.
// Form fields: file, institution_id, conflict_strategy, dry_run, adapter_id,
// verbose and async. With async=true the import runs in the background and
// the response carries the progress id to poll.
func (h *Handler) HandleImport(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, l, &requestError{msg: "file is required"})
	}

	req := Request{
		AdapterID:     c.FormValue("adapter_id"),
		InstitutionID: c.FormValue("institution_id"),
		Strategy:      c.FormValue("conflict_strategy"),
	}
	var async bool
	for name, dst := range map[string]*bool{"dry_run": &req.DryRun, "verbose": &req.Verbose, "async": &async} {
		if *dst, err = formBool(c, name); err != nil {
			return h.fail(c, l, err)
		}
	}
	// Reject a bad strategy or adapter before the upload is copied to disk.
	if _, err := reconcile.ParseStrategy(req.Strategy); err != nil {
		return h.fail(c, l, err)
	}
	if err := h.service.CheckAdapter(req.AdapterID, fh.Filename); err != nil {
		return h.fail(c, l, err)
	}

	if async {
		tmp, err := h.save(fh, l)
		if err != nil {
			return h.fail(c, l, err)
		}
		req.Document = tmp.Document()
		id, err := h.service.StartImport(req, tmp.Release)
		if err != nil {
			return h.fail(c, l, err)
		}
		l.Info("Import started", zap.String("progress_id", id), zap.String("file", fh.Filename))
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"progress_id": id})
	}

	var result *reconcile.ImportResult
	err = h.withUpload(fh, l, func(tmp *upload.TempFile) error {
		req.Document = tmp.Document()
		var iErr error
		result, iErr = h.service.Import(c.UserContext(), req)
		return iErr
	})
	if err != nil {
		if result != nil {
			l.Warn("Import interrupted", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":  err.Error(),
				"result": result,
			})
		}
		return h.fail(c, l, err)
	}
	return c.JSON(result)
}

// HandleGetProgress returns the state of a background import.
func (h *Handler) HandleGetProgress(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	fields, ok, err := h.service.GetProgress(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, l, err)
	}
	if !ok {
		return h.fail(c, l, progress.ErrNotFound)
	}
	return c.JSON(fields)
}

// HandleCleanupProgress forgets a progress entry.
func (h *Handler) HandleCleanupProgress(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	if err := h.service.CleanupProgress(c.UserContext(), c.Params("id")); err != nil {
		return h.fail(c, l, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) save(fh *multipart.FileHeader, l *zap.Logger) (*upload.TempFile, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return upload.Save(h.service.cfg.TempDir, fh.Filename, f, l)
}

func (h *Handler) withUpload(fh *multipart.FileHeader, l *zap.Logger, fn func(*upload.TempFile) error) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	return upload.With(h.service.cfg.TempDir, fh.Filename, f, l, fn)
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		l.Error("Import request failed", zap.Error(err))
	} else {
		l.Info("Import request rejected", zap.Int("status", status), zap.Error(err))
	}

	body := fiber.Map{"error": err.Error()}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		body["hints"] = hints
	}
	return c.Status(status).JSON(body)
}

// statusFor maps an error to the HTTP status for its class.
func statusFor(err error) int {
	var (
		dispatchErr *adapter.DispatchError
		documentErr *adapter.DocumentError
		strategyErr *reconcile.StrategyError
		requestErr  *requestError
	)
	switch {
	case errors.As(err, &dispatchErr), errors.As(err, &strategyErr), errors.As(err, &requestErr),
		errors.Is(err, reconcile.ErrInstitutionRequired):
		return fiber.StatusBadRequest
	case errors.As(err, &documentErr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, progress.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func formBool(c *fiber.Ctx, name string) (bool, error) {
	v := c.FormValue(name)
	if v == "" {
		return false, nil
	}
	b, err := utils.ParseBool(v)
	if err != nil {
		return false, &requestError{msg: name + ": " + err.Error()}
	}
	return b, nil
}

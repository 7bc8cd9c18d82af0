package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"net/http"

	"github.com/Brownie44l1/digit-pad/internal/digit"
	"github.com/Brownie44l1/digit-pad/internal/inference"

	"github.com/disintegration/imaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 10 << 20

// HealthChecker reports whether the inference service is up.
type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

type Handler struct {
	predictor inference.Predictor
	health    HealthChecker

	options []digit.Option

	logger *logrus.Entry
}

func NewHandler(predictor inference.Predictor, health HealthChecker, logger *logrus.Entry, options ...digit.Option) *Handler {
	return &Handler{
		predictor: predictor,
		health:    health,

		options: options,

		logger: logger,
	}
}

func (h *Handler) Attach(r chi.Router) {
	r.Get("/health", h.Health)

	r.Post("/predict", h.Predict)
	r.Post("/predict/image", h.PredictFromImage)

	r.Post("/normalize", h.Normalize)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "offline"

	if h.health.CheckHealth(r.Context()) {
		status = "online"
	}

	writeJson(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Inference: status,
	})
}

// Predict classifies a raw RGBA canvas bitmap posted as JSON.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req CanvasRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		writeBadRequest(w, "Invalid JSON")
		return
	}

	bitmap, err := digit.FromRGBA(req.Width, req.Height, req.Data)

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.predict(w, r, bitmap)
}

// PredictFromImage classifies a canvas snapshot uploaded as the "image"
// form file.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	img, ok := h.readImage(w, r)

	if !ok {
		return
	}

	h.predict(w, r, img)
}

// Normalize returns the 28x28 PNG the classifier would receive.
func (h *Handler) Normalize(w http.ResponseWriter, r *http.Request) {
	img, ok := h.readImage(w, r)

	if !ok {
		return
	}

	payload, err := h.encode(img)

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(payload)
}

func (h *Handler) predict(w http.ResponseWriter, r *http.Request, img image.Image) {
	payload, err := h.encode(img)

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.predictor.Predict(r.Context(), payload)

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.WithField("request_id", middleware.GetReqID(r.Context())).
		WithField("predicted_class", result.PredictedClass).
		WithField("confidence", result.Confidence).
		Info("prediction")

	writeJson(w, http.StatusOK, result)
}

func (h *Handler) encode(img image.Image) ([]byte, error) {
	normalized, err := digit.Normalize(img, h.options...)

	if err != nil {
		return nil, err
	}

	return digit.Encode(normalized)
}

func (h *Handler) readImage(w http.ResponseWriter, r *http.Request) (image.Image, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeBadRequest(w, "Failed to parse form")
		return nil, false
	}

	file, header, err := r.FormFile("image")

	if err != nil {
		writeBadRequest(w, "No image file provided. Use 'image' as the form field name")
		return nil, false
	}

	defer file.Close()

	// the header is checked first so a small file declaring huge
	// dimensions is never decoded
	cfg, _, err := image.DecodeConfig(file)

	if err != nil {
		writeBadRequest(w, "Invalid image format. Supported: PNG, JPEG")
		return nil, false
	}

	if err := digit.CheckBounds(cfg.Width, cfg.Height); err != nil {
		writeBadRequest(w, "Invalid image size: "+err.Error())
		return nil, false
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeBadRequest(w, "Failed to read image")
		return nil, false
	}

	img, err := imaging.Decode(io.LimitReader(file, maxUploadSize))

	if err != nil {
		writeBadRequest(w, "Invalid image format. Supported: PNG, JPEG")
		return nil, false
	}

	h.logger.WithField("request_id", middleware.GetReqID(r.Context())).
		WithField("file", header.Filename).
		WithField("size", header.Size).
		WithField("bounds", img.Bounds().String()).
		Debug("received canvas image")

	return img, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, digit.ErrNoDrawing) {
		err = &inference.Error{Kind: inference.NoDrawing, Err: err}
	}

	var e *inference.Error

	if !errors.As(err, &e) {
		writeBadRequest(w, err.Error())
		return
	}

	code := statusCode(e.Kind)

	entry := h.logger.WithField("request_id", middleware.GetReqID(r.Context())).
		WithField("kind", e.Kind.String())

	if code >= http.StatusInternalServerError {
		entry.WithError(err).Warn("prediction failed")
	} else {
		entry.Debug("prediction rejected")
	}

	writeJson(w, code, ErrorResponse{
		Error:   e.Kind.String(),
		Message: e.Message(),

		StatusCode: e.StatusCode,
		Body:       e.Body,
		Field:      e.Field,
	})
}

func statusCode(kind inference.Kind) int {
	switch kind {
	case inference.NoDrawing:
		return http.StatusBadRequest
	case inference.MalformedResponse, inference.ServerRejected:
		return http.StatusBadGateway
	case inference.Unreachable:
		return http.StatusServiceUnavailable
	case inference.TimedOut:
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

func writeJson(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	enc.Encode(v)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJson(w, http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

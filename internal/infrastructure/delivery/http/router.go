// Package httprouter wires the pipeline service behind an HTTP API.
package httprouter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"
	"strings"

	"descargo/internal/consts"
	"descargo/internal/entity"
	"descargo/internal/errs"
	"descargo/internal/infrastructure/delivery/http/middleware"
	"descargo/internal/infrastructure/delivery/http/request"
	"descargo/internal/infrastructure/delivery/http/response"
	"descargo/internal/observability"
)

// Pipeline is the service surface the router exposes.
type Pipeline interface {
	Discover(ctx context.Context, raw string) ([]entity.FormatDescriptor, error)
	Fetch(ctx context.Context, raw, formatID string) (*entity.Delivery, error)
	Cleanup(ctx context.Context, paths ...string)
	Ready(ctx context.Context) bool
}

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	svc         Pipeline
	metrics     *observability.Metrics
	workDir     string
}

// New builds the router. workDir confines cleanup requests to the artifact
// directory.
func New(log *slog.Logger, svc Pipeline, metrics *observability.Metrics, workDir string) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      log,
		svc:      svc,
		metrics:  metrics,
		workDir:  workDir,
	}

	r.Use(
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(metrics),
	)
	r.SetRoutes()

	return r
}

func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, mw...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

func (ro *Router) SetRoutes() {
	ro.HandleFunc("GET /v1/readyz", ro.Readyz)
	ro.HandleFunc("POST /v1/formats", ro.Formats)
	ro.HandleFunc("POST /v1/fetch", ro.Fetch)
	ro.HandleFunc("POST /v1/cleanup", ro.Cleanup)
	ro.Handle("GET /metrics", ro.metrics.Handler())
}

// Readyz reports whether the external tooling is usable. A degraded reply
// lets operators see a broken tool before users hit it mid-transfer.
func (ro *Router) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	if !ro.svc.Ready(ctx) {
		response.ServiceUnavailable(w, consts.RespDependencyMissing, nil)

		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Formats discovers the deliverable encodings for a reference.
func (ro *Router) Formats(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Formats")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultDiscoverHandlerTimeout)
	defer cancel()

	var in request.Discover
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	formats, err := ro.svc.Discover(ctx, in.URL)
	if errors.Is(err, errs.ErrInvalidReference) {
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}
	if err != nil {
		log.ErrorContext(ctx, consts.RespDiscoveryFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespDiscoveryFailed, nil, err)

		return
	}

	// Nothing playable is a valid outcome, not a failure.
	if len(formats) == 0 {
		log.InfoContext(ctx, consts.RespNothingPlayable, slog.String("url", in.URL))
		response.NoContent(w)

		return
	}

	response.OK(w, consts.RespFormatsRetrieved, formats, nil)
}

// Fetch runs the whole pipeline for one chosen encoding and blocks until the
// delivery is ready.
func (ro *Router) Fetch(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Fetch")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultFetchHandlerTimeout)
	defer cancel()

	var in request.Fetch
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		log.ErrorContext(ctx, consts.RespUnprocessableEntity, slog.Any("error", err))
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	delivery, err := ro.svc.Fetch(ctx, in.URL, in.FormatID)
	if err != nil {
		ro.writeFetchError(ctx, w, err)

		return
	}

	log.InfoContext(ctx, consts.RespFetchDone, slog.Any("delivery", delivery))
	response.OK(w, consts.RespFetchDone, delivery, nil)
}

func (ro *Router) writeFetchError(ctx context.Context, w http.ResponseWriter, err error) {
	log := ro.log.With("handler", "Fetch")

	switch {
	case errors.Is(err, errs.ErrBusy):
		response.TooManyRequests(w, consts.RespBusy, err)
	case errors.Is(err, errs.ErrDependencyUnavailable):
		response.ServiceUnavailable(w, consts.RespDependencyMissing, err)
	case errors.Is(err, errs.ErrInvalidReference):
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)
	case errors.Is(err, errs.ErrStaleFormat):
		response.UnprocessableEntity(w, consts.RespStaleFormat, err)
	case errors.Is(err, errs.ErrTooLarge):
		response.UnprocessableEntity(w, consts.RespTooLarge, err)
	default:
		log.ErrorContext(ctx, consts.RespFetchFailed, slog.Any("error", err))
		response.InternalServerError(w, consts.RespFetchFailed, nil, err)
	}
}

// Cleanup removes delivered artifacts. Paths must sit inside the working
// directory; anything else is rejected outright.
func (ro *Router) Cleanup(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With("handler", "Cleanup")

	ctx, cancel := context.WithTimeout(r.Context(), consts.DefaultHandlerTimeout)
	defer cancel()

	var in request.Cleanup
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.BadRequest(w, consts.RespInvalidRequestBody, err)

		return
	}

	if err := in.Validate(); err != nil {
		response.UnprocessableEntity(w, consts.RespUnprocessableEntity, err)

		return
	}

	for _, path := range in.Paths {
		if !ro.insideWorkDir(path) {
			log.WarnContext(ctx, consts.RespPathOutsideWorkDir, slog.String("path", path))
			response.UnprocessableEntity(w, consts.RespPathOutsideWorkDir, nil)

			return
		}
	}

	ro.svc.Cleanup(ctx, in.Paths...)
	response.OK(w, consts.RespCleanupDone, nil, nil)
}

func (ro *Router) insideWorkDir(path string) bool {
	rel, err := filepath.Rel(ro.workDir, filepath.Clean(path))
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

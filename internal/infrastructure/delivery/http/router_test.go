package httprouter_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"descargo/internal/entity"
	"descargo/internal/errs"
	httprouter "descargo/internal/infrastructure/delivery/http"
	"descargo/internal/infrastructure/delivery/http/response"
	"descargo/internal/observability"
)

var metrics = observability.New()

type fakePipeline struct {
	formats     []entity.FormatDescriptor
	discoverErr error
	delivery    *entity.Delivery
	fetchErr    error
	ready       bool

	cleaned []string
}

func (f *fakePipeline) Discover(context.Context, string) ([]entity.FormatDescriptor, error) {
	return f.formats, f.discoverErr
}

func (f *fakePipeline) Fetch(context.Context, string, string) (*entity.Delivery, error) {
	return f.delivery, f.fetchErr
}

func (f *fakePipeline) Cleanup(_ context.Context, paths ...string) {
	f.cleaned = append(f.cleaned, paths...)
}

func (f *fakePipeline) Ready(context.Context) bool { return f.ready }

func newRouter(svc *fakePipeline) *httprouter.Router {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	return httprouter.New(log, svc, metrics, "/work")
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestFormats(t *testing.T) {
	svc := &fakePipeline{formats: []entity.FormatDescriptor{{FormatID: "22", Label: "720p"}}}
	router := newRouter(svc)

	rec := do(t, router, http.MethodPost, "/v1/formats", `{"url":"https://example.com/v"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Error != "" {
		t.Errorf("unexpected error in envelope: %s", resp.Error)
	}
}

func TestFormatsEmptyIsNoContent(t *testing.T) {
	router := newRouter(&fakePipeline{})

	rec := do(t, router, http.MethodPost, "/v1/formats", `{"url":"https://example.com/v"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}

func TestFormatsRejectsBadInput(t *testing.T) {
	router := newRouter(&fakePipeline{})

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "broken json", body: `{`, want: http.StatusBadRequest},
		{name: "invalid url", body: `{"url":"notaurl"}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/v1/formats", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFetchErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "busy", err: errs.ErrBusy, want: http.StatusTooManyRequests},
		{name: "dependency", err: errs.ErrDependencyUnavailable, want: http.StatusServiceUnavailable},
		{name: "stale format", err: errs.ErrStaleFormat, want: http.StatusUnprocessableEntity},
		{name: "too large", err: errs.ErrTooLarge, want: http.StatusUnprocessableEntity},
		{name: "transfer failed", err: errs.ErrTransferFailed, want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newRouter(&fakePipeline{fetchErr: tt.err})

			rec := do(t, router, http.MethodPost, "/v1/fetch", `{"url":"https://example.com/v","formatId":"22"}`)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestFetchSuccess(t *testing.T) {
	svc := &fakePipeline{delivery: &entity.Delivery{
		Result: entity.FetchResult{Path: "/work/clip.mp4", Size: 42, Ext: ".mp4"},
	}}
	router := newRouter(svc)

	rec := do(t, router, http.MethodPost, "/v1/fetch", `{"url":"https://example.com/v","formatId":"22"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	rec := do(t, newRouter(&fakePipeline{ready: true}), http.MethodGet, "/v1/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	rec = do(t, newRouter(&fakePipeline{ready: false}), http.MethodGet, "/v1/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("degraded status = %d, want 503", rec.Code)
	}
}

func TestCleanupConfinedToWorkDir(t *testing.T) {
	svc := &fakePipeline{}
	router := newRouter(svc)

	rec := do(t, router, http.MethodPost, "/v1/cleanup", `{"paths":["/etc/passwd"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	if len(svc.cleaned) != 0 {
		t.Errorf("cleanup ran on %v despite rejection", svc.cleaned)
	}

	rec = do(t, router, http.MethodPost, "/v1/cleanup", `{"paths":["/work/clip.mp4","/work/clip_part000.mp4"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	if len(svc.cleaned) != 2 {
		t.Errorf("cleaned %v, want both paths", svc.cleaned)
	}
}

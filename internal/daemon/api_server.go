package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"lightbox/internal/api"
	"lightbox/internal/config"
	"lightbox/internal/logging"
	"lightbox/internal/thumbs"
	"lightbox/internal/uploads"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("api bind address required")
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	token := cfg.Paths.APIToken
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/batches", authMiddleware(token, srv.handleBatches))
	mux.HandleFunc("/api/batches/", authMiddleware(token, srv.handleBatch))
	mux.HandleFunc("/api/drawer", authMiddleware(token, srv.handleDrawer))
	mux.HandleFunc("/api/drawer/", authMiddleware(token, srv.handleDrawerAction))
	mux.HandleFunc("/api/filters/evaluate", authMiddleware(token, srv.handleFilters))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

type createBatchRequest struct {
	TenantID   string `json:"tenantId"`
	BrandID    string `json:"brandId"`
	CategoryID string `json:"categoryId,omitempty"`
}

func (s *apiServer) handleBatches(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		summaries, err := s.daemon.Batches().List(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchListResponse{Batches: summaries})
	case http.MethodPost:
		var req createBatchRequest
		if !s.decode(w, r, &req) {
			return
		}
		view, err := s.daemon.Batches().Create(r.Context(), req.TenantID, req.BrandID, req.CategoryID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, api.BatchResponse{Batch: view})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type addFileRequest struct {
	OriginalFilename string `json:"originalFilename"`
	FilePath         string `json:"filePath"`
	SizeBytes        int64  `json:"sizeBytes"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type fieldRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Clear bool   `json:"clear,omitempty"`
}

type categoryRequest struct {
	CategoryID string `json:"categoryId"`
}

type attachRequest struct {
	FilePath  string `json:"filePath"`
	SizeBytes int64  `json:"sizeBytes"`
}

// handleBatch routes /api/batches/{id} and its item subresources.
func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/batches/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		s.writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	batchID := segments[0]
	svc := s.daemon.Batches()
	ctx := r.Context()

	switch {
	case len(segments) == 1:
		switch r.Method {
		case http.MethodGet:
			view, err := svc.Get(ctx, batchID)
			if err != nil {
				s.writeServiceError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: view})
		case http.MethodDelete:
			if err := svc.Delete(ctx, batchID); err != nil {
				s.writeServiceError(w, err)
				return
			}
			s.writeJSON(w, http.StatusOK, map[string]string{"deleted": batchID})
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}

	case len(segments) == 2 && r.Method == http.MethodPost:
		var (
			view api.BatchView
			err  error
		)
		switch segments[1] {
		case "files":
			var req addFileRequest
			if !s.decode(w, r, &req) {
				return
			}
			view, err = svc.AddFile(ctx, batchID, req.OriginalFilename, req.FilePath, req.SizeBytes)
		case "category":
			var req categoryRequest
			if !s.decode(w, r, &req) {
				return
			}
			view, err = svc.ChangeCategory(ctx, batchID, req.CategoryID)
		case "global":
			var req fieldRequest
			if !s.decode(w, r, &req) {
				return
			}
			if req.Clear {
				view, err = svc.ClearGlobalField(ctx, batchID, req.Key)
			} else {
				view, err = svc.SetGlobalField(ctx, batchID, req.Key, req.Value)
			}
		case "finalize":
			view, err = svc.Finalize(ctx, batchID)
			if errors.Is(err, uploads.ErrFinalizeBlocked) {
				s.writeJSON(w, http.StatusConflict, map[string]any{
					"error": err.Error(),
					"batch": view,
				})
				return
			}
		default:
			s.writeError(w, http.StatusNotFound, "unknown batch action")
			return
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: view})

	case len(segments) == 4 && segments[1] == "items" && r.Method == http.MethodPost:
		itemID := segments[2]
		var (
			view api.BatchView
			err  error
		)
		switch segments[3] {
		case "title":
			var req titleRequest
			if !s.decode(w, r, &req) {
				return
			}
			view, err = svc.SetTitle(ctx, batchID, itemID, req.Title)
		case "override":
			var req fieldRequest
			if !s.decode(w, r, &req) {
				return
			}
			if req.Clear {
				view, err = svc.ClearOverride(ctx, batchID, itemID, req.Key)
			} else {
				view, err = svc.SetOverride(ctx, batchID, itemID, req.Key, req.Value)
			}
		case "attach":
			var req attachRequest
			if !s.decode(w, r, &req) {
				return
			}
			view, err = svc.AttachFile(ctx, batchID, itemID, req.FilePath, req.SizeBytes)
		case "upload":
			var req api.UploadRequest
			if !s.decode(w, r, &req) {
				return
			}
			view, err = svc.StartUpload(ctx, batchID, itemID, req)
		default:
			s.writeError(w, http.StatusNotFound, "unknown item action")
			return
		}
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BatchResponse{Batch: view})

	default:
		s.writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *apiServer) handleDrawer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, s.daemon.Drawer().View())
}

type openDrawerRequest struct {
	AssetID string `json:"assetId"`
}

func (s *apiServer) handleDrawerAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/drawer/"), "/")
	drawer := s.daemon.Drawer()
	switch action {
	case "open":
		var req openDrawerRequest
		if !s.decode(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.AssetID) == "" {
			s.writeError(w, http.StatusBadRequest, "asset id required")
			return
		}
		s.writeJSON(w, http.StatusOK, s.daemon.OpenDrawer(req.AssetID))
	case "close":
		drawer.Close()
		s.writeJSON(w, http.StatusOK, drawer.View())
	case "grid":
		var rec thumbs.Record
		if !s.decode(w, r, &rec) {
			return
		}
		if rec.AssetID == "" {
			s.writeError(w, http.StatusBadRequest, "asset id required")
			return
		}
		drawer.UpdateGrid(rec)
		s.writeJSON(w, http.StatusOK, drawer.View())
	default:
		s.writeError(w, http.StatusNotFound, "unknown drawer action")
	}
}

func (s *apiServer) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.FilterEvalRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, http.StatusOK, api.EvaluateFilters(req))
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP statuses.
func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, api.ErrBatchNotFound), errors.Is(err, uploads.ErrItemNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, uploads.ErrBatchFinalized):
		s.writeError(w, http.StatusConflict, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

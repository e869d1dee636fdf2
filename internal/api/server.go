// Package api serves receipts over HTTP and WebSocket
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/luxstay/receipt-engine/internal/backend"
	"github.com/luxstay/receipt-engine/internal/booking"
	"github.com/luxstay/receipt-engine/internal/metrics"
	"github.com/luxstay/receipt-engine/internal/registry"
	"github.com/luxstay/receipt-engine/internal/renderer"
	"github.com/luxstay/receipt-engine/pkg/receiptdoc"
)

const maxDocumentBytes = 1 << 20

// ReservationSource loads a reservation and its room
type ReservationSource interface {
	ReservationWithRoom(ctx context.Context, id string) (*booking.Reservation, *booking.Room, error)
}

// Deps are the collaborators of the API server
type Deps struct {
	Renderer       *renderer.Renderer
	Backend        ReservationSource
	Registry       *registry.Registry
	Metrics        metrics.Recorder
	MetricsHandler http.Handler
	Logger         *slog.Logger

	Product        string
	CodeKind       string
	AllowedOrigins []string
}

// Server is the API server
type Server struct {
	router   *gin.Engine
	deps     Deps
	log      *slog.Logger
	upgrader websocket.Upgrader
	hub      *hub
}

// NewServer creates a new API server
func NewServer(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)

	if deps.Metrics == nil {
		deps.Metrics = metrics.NoopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Product == "" {
		deps.Product = booking.DefaultProduct
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(deps.Logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	server := &Server{
		router: router,
		deps:   deps,
		log:    deps.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(deps.AllowedOrigins, r.Header.Get("Origin"))
			},
		},
		hub: newHub(),
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	s.router.POST("/receipts", s.handleRenderDocument)
	s.router.POST("/receipts/preview", s.handlePreviewDocument)
	s.router.GET("/receipts", s.handleListReceipts)
	s.router.GET("/receipts/:id", s.handleGetReceipt)
	s.router.DELETE("/receipts/:id", s.handleDeleteReceipt)

	s.router.GET("/reservations/:id/receipt", s.handleReservationReceipt)
	s.router.GET("/reservations/:id/receipt/preview", s.handleReservationPreview)
	s.router.GET("/reservations/:id/receipts", s.handleReservationReceipts)

	// WebSocket
	s.router.GET("/ws", s.handleWebSocket)

	if s.deps.MetricsHandler != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.MetricsHandler))
	}

	// Health check
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.hub.closeAll()
		return srv.Shutdown(shutdownCtx)
	}
}

// handleRenderDocument renders a posted document and returns it as a download
func (s *Server) handleRenderDocument(c *gin.Context) {
	doc, ok := s.bindDocument(c, "pdf")
	if !ok {
		return
	}

	filename := sanitizeFilename(c.DefaultQuery("filename", booking.Filename(s.deps.Product, "document")))

	issued, err := s.issue(doc, "", filename)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sendPDF(c, issued)
}

// handlePreviewDocument renders a posted document as PNG
func (s *Server) handlePreviewDocument(c *gin.Context) {
	doc, ok := s.bindDocument(c, "png")
	if !ok {
		return
	}
	s.sendPreview(c, doc)
}

// handleReservationReceipt fetches a reservation and returns its receipt
func (s *Server) handleReservationReceipt(c *gin.Context) {
	id := c.Param("id")

	doc, ok := s.reservationDocument(c, id)
	if !ok {
		return
	}

	issued, err := s.issue(doc, id, sanitizeFilename(booking.Filename(s.deps.Product, id)))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	sendPDF(c, issued)
}

// handleReservationPreview returns the PNG preview of a reservation receipt
func (s *Server) handleReservationPreview(c *gin.Context) {
	doc, ok := s.reservationDocument(c, c.Param("id"))
	if !ok {
		return
	}
	s.sendPreview(c, doc)
}

// handleListReceipts returns all issued receipts
func (s *Server) handleListReceipts(c *gin.Context) {
	if s.deps.Registry == nil {
		c.JSON(http.StatusOK, gin.H{"receipts": []registry.Entry{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"receipts": s.deps.Registry.All()})
}

// handleReservationReceipts returns the receipts issued for one reservation
func (s *Server) handleReservationReceipts(c *gin.Context) {
	entries := []registry.Entry{}
	if s.deps.Registry != nil {
		if found := s.deps.Registry.ForReservation(c.Param("id")); found != nil {
			entries = found
		}
	}
	c.JSON(http.StatusOK, gin.H{"receipts": entries})
}

// handleGetReceipt returns a specific registry entry
func (s *Server) handleGetReceipt(c *gin.Context) {
	if s.deps.Registry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}

	entry, ok := s.deps.Registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// handleDeleteReceipt removes a registry entry
func (s *Server) handleDeleteReceipt(c *gin.Context) {
	if s.deps.Registry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}

	removed, err := s.deps.Registry.Remove(c.Param("id"))
	if err != nil {
		s.log.Error("Failed to save registry", "error", err)
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "receipt not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) bindDocument(c *gin.Context, format string) (*receiptdoc.Document, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return nil, false
	}
	if len(body) > maxDocumentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document too large"})
		return nil, false
	}

	doc, err := receiptdoc.Parse(body)
	if err != nil {
		s.deps.Metrics.IncRender(format, metrics.ResultInvalid)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid document: %v", err)})
		return nil, false
	}
	return doc, true
}

func (s *Server) reservationDocument(c *gin.Context, id string) (*receiptdoc.Document, bool) {
	if s.deps.Backend == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reservation backend not configured"})
		return nil, false
	}

	resv, room, err := s.deps.Backend.ReservationWithRoom(c.Request.Context(), id)
	if err != nil {
		s.deps.Metrics.IncBackendError("reservation")
		s.log.Warn("Failed to load reservation", "reservation_id", id, "error", err)
		c.JSON(backendStatus(err), gin.H{"error": backendMessage(err)})
		return nil, false
	}

	return booking.ReceiptFor(resv, room, booking.Options{
		Product:       s.deps.Product,
		CodeKind:      s.deps.CodeKind,
		ReservationID: id,
	}), true
}

// issued is a rendered receipt ready to be sent
type issued struct {
	filename  string
	data      []byte
	truncated bool
	entry     *registry.Entry
}

// issue renders doc, records it in the registry and notifies listeners
func (s *Server) issue(doc *receiptdoc.Document, reservationID, filename string) (*issued, error) {
	start := time.Now()
	res, err := s.deps.Renderer.Render(doc)
	s.deps.Metrics.ObserveRenderDuration("pdf", time.Since(start))
	if err != nil {
		s.deps.Metrics.IncRender("pdf", metrics.ResultFailed)
		s.log.Error("Failed to render receipt", "reservation_id", reservationID, "error", err)
		return nil, err
	}

	s.deps.Metrics.IncRender("pdf", metrics.ResultSuccess)
	s.deps.Metrics.ObserveReceiptBytes(len(res.PDF))
	if res.Plan.Truncated {
		s.deps.Metrics.IncTruncated()
		s.log.Warn("Receipt content truncated", "reservation_id", reservationID, "rows", doc.RowCount())
	}
	for _, w := range res.Plan.Warnings {
		s.log.Warn("Receipt layout warning", "reservation_id", reservationID, "warning", w)
	}

	out := &issued{filename: filename, data: res.PDF, truncated: res.Plan.Truncated}

	if s.deps.Registry != nil {
		entry, err := s.deps.Registry.Record(registry.Receipt{
			ReservationID: reservationID,
			Filename:      filename,
			Data:          res.PDF,
			Truncated:     res.Plan.Truncated,
		})
		if err != nil {
			s.log.Error("Failed to save registry", "error", err)
		}
		out.entry = &entry
		s.hub.broadcast(WSMessage{
			Event: EventReceiptIssued,
			Data: map[string]interface{}{
				"id":             entry.ID,
				"reservation_id": entry.ReservationID,
				"filename":       entry.Filename,
				"size":           entry.Size,
			},
		})
	}

	s.log.Info("Receipt issued", "reservation_id", reservationID, "filename", filename, "bytes", len(res.PDF))
	return out, nil
}

func (s *Server) sendPreview(c *gin.Context, doc *receiptdoc.Document) {
	opts := renderer.PreviewOptions{}
	if w, err := strconv.Atoi(c.Query("width")); err == nil && w > 0 {
		opts.Width = w
	}
	if sc, err := strconv.ParseFloat(c.Query("scale"), 64); err == nil && sc > 0 && sc <= 8 {
		opts.Scale = sc
	}

	start := time.Now()
	png, err := s.deps.Renderer.Preview(doc, opts)
	s.deps.Metrics.ObserveRenderDuration("png", time.Since(start))
	if err != nil {
		s.deps.Metrics.IncRender("png", metrics.ResultFailed)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.deps.Metrics.IncRender("png", metrics.ResultSuccess)

	c.Data(http.StatusOK, "image/png", png)
}

// sendPDF delivers the receipt as an attachment download
func sendPDF(c *gin.Context, r *issued) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, r.filename))
	c.Header("X-Receipt-Truncated", strconv.FormatBool(r.truncated))
	if r.entry != nil && r.entry.ID != "" {
		c.Header("X-Receipt-Id", r.entry.ID)
	}
	c.Data(http.StatusOK, "application/pdf", r.data)
}

func backendStatus(err error) int {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func backendMessage(err error) string {
	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Error()
	}
	return "Failed to load confirmation."
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == "/" {
		name = "receipt"
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func originAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 || origin == "" {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*"):
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && originAllowed(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Receipt-Id, X-Receipt-Truncated")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

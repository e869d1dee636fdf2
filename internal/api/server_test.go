package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxstay/receipt-engine/internal/backend"
	"github.com/luxstay/receipt-engine/internal/booking"
	"github.com/luxstay/receipt-engine/internal/layout"
	"github.com/luxstay/receipt-engine/internal/metrics"
	"github.com/luxstay/receipt-engine/internal/pdf"
	"github.com/luxstay/receipt-engine/internal/registry"
	"github.com/luxstay/receipt-engine/internal/renderer"
)

type fakeBackend struct {
	reservations map[string]*booking.Reservation
	rooms        map[int64]*booking.Room
}

func (f *fakeBackend) ReservationWithRoom(_ context.Context, id string) (*booking.Reservation, *booking.Room, error) {
	resv, ok := f.reservations[id]
	if !ok {
		return nil, nil, &backend.HTTPError{Status: http.StatusNotFound, Message: "Reservation not found: " + id}
	}
	if resv.RoomID == nil {
		return resv, nil, nil
	}
	return resv, f.rooms[*resv.RoomID], nil
}

func newFakeBackend() *fakeBackend {
	roomID := int64(7)
	number := 12
	return &fakeBackend{
		reservations: map[string]*booking.Reservation{
			"42": {
				ID:        42,
				RoomID:    &roomID,
				StartDate: "2025-03-01",
				EndDate:   "2025-03-04",
				Customer:  &booking.Customer{ID: 9, FullName: "Ada Lovelace"},
			},
			// payload without an id
			`7"b`: {StartDate: "2025-03-01", EndDate: "2025-03-02"},
		},
		rooms: map[int64]*booking.Room{
			7: {ID: 7, HotelName: "Harbour View", City: "Halifax", RoomNumber: &number, Price: 35.36},
		},
	}
}

type testEnv struct {
	server   *Server
	registry *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg, err := registry.New(filepath.Join(t.TempDir(), "receipts.json"))
	require.NoError(t, err)

	promReg := prom.NewRegistry()
	s := NewServer(Deps{
		Renderer:       renderer.New(layout.DefaultConfig(), pdf.Options{}),
		Backend:        newFakeBackend(),
		Registry:       reg,
		Metrics:        metrics.NewPrometheusRecorder(promReg),
		MetricsHandler: metrics.HTTPHandler(promReg),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &testEnv{server: s, registry: reg}
}

func (e *testEnv) do(method, target string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

const receiptJSON = `{
  "title": "Receipt",
  "sections": [
    {"title": "Charges", "rows": [{"k": "Total", "v": "$109.25", "style": {"bold": true, "size": 12}}]}
  ],
  "footerLines": ["Thank you"]
}`

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, gin.ReleaseMode, gin.Mode())

	rec := env.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRenderDocument_Download(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/receipts", receiptJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="luxstay-receipt-document.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "false", rec.Header().Get("X-Receipt-Truncated"))
	assert.NotEmpty(t, rec.Header().Get("X-Receipt-Id"))

	report, err := pdf.Inspect(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, report.Entries, pdf.ObjectCount)
	assert.Equal(t, []string{"Receipt", "CHARGES", "Total", "$109.25", "Thank you"}, report.Texts)

	assert.Len(t, env.registry.All(), 1)
}

func TestRenderDocument_FilenameSanitized(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/receipts?filename=..%2Fmy%22stay", receiptJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="mystay.pdf"`, rec.Header().Get("Content-Disposition"))
}

func TestRenderDocument_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/receipts", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/receipts", `{"title": "  ", "sections": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")

	assert.Empty(t, env.registry.All())
}

func TestReservationReceipt(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/reservations/42/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="luxstay-receipt-42.pdf"`, rec.Header().Get("Content-Disposition"))

	report, err := pdf.Inspect(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, report.Texts, "$109.26")
	assert.Contains(t, report.Texts, "Reservation ID: #42")
	assert.Contains(t, report.Texts, "RESERVATION")

	rec = env.do(http.MethodGet, "/reservations/42/receipts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Receipts []registry.Entry `json:"receipts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Receipts, 1)
	assert.Equal(t, "luxstay-receipt-42.pdf", list.Receipts[0].Filename)
}

func TestReservationReceipt_RequestedIDUsed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/reservations/7%22b/receipt", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `attachment; filename="luxstay-receipt-7b.pdf"`, rec.Header().Get("Content-Disposition"))

	report, err := pdf.Inspect(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Contains(t, report.Texts, `#7"b`)
	assert.Contains(t, report.Texts, `Reservation ID: #7"b`)
}

func TestReservationReceipt_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/reservations/404/receipt", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Reservation not found: 404"}`, rec.Body.String())
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/receipts/preview?width=200", receiptJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	cfg, format, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 200, cfg.Width)

	rec = env.do(http.MethodGet, "/reservations/42/receipt/preview?scale=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 612, cfg.Width)
}

func TestReceiptRegistryEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/receipts", receiptJSON)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get("X-Receipt-Id")

	rec = env.do(http.MethodGet, "/receipts/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entry registry.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, id, entry.ID)

	rec = env.do(http.MethodGet, "/receipts", "")
	assert.Contains(t, rec.Body.String(), id)

	rec = env.do(http.MethodDelete, "/receipts/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/receipts/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodPost, "/receipts", receiptJSON)
	env.do(http.MethodPost, "/receipts", `{}`)

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `receipt_engine_renders_total{format="pdf",result="success"} 1`)
	assert.Contains(t, body, `receipt_engine_renders_total{format="pdf",result="invalid"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodOptions, "/receipts", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"luxstay-receipt-1.pdf", "luxstay-receipt-1.pdf"},
		{"../../etc/passwd", "passwd.pdf"},
		{"", "receipt.pdf"},
		{"RECEIPT.PDF", "RECEIPT.PDF"},
		{`a"b`, "ab.pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), "sanitize %q", tt.in)
	}
}

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.server.Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

// readUntil returns the first message with the given event
func readUntil(t *testing.T, conn *websocket.Conn, event string) WSMessage {
	t.Helper()
	for {
		var msg WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Event == event {
			return msg
		}
	}
}

func TestWebSocket_RenderDocument(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(receiptJSON), &doc))
	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventRender, Data: map[string]interface{}{"document": doc}}))

	msg := readUntil(t, conn, EventResponse)
	assert.Equal(t, true, msg.Data["success"])
	assert.Equal(t, "luxstay-receipt-document.pdf", msg.Data["filename"])
	assert.NotEmpty(t, msg.Data["receipt_id"])

	data, err := base64.StdEncoding.DecodeString(msg.Data["pdf"].(string))
	require.NoError(t, err)
	_, err = pdf.Inspect(data)
	require.NoError(t, err)
}

func TestWebSocket_RenderReservation(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventRender, Data: map[string]interface{}{"reservation_id": "42"}}))

	issued := readUntil(t, conn, EventReceiptIssued)
	assert.Equal(t, "42", issued.Data["reservation_id"])

	msg := readUntil(t, conn, EventResponse)
	assert.Equal(t, "luxstay-receipt-42.pdf", msg.Data["filename"])

	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventRender, Data: map[string]interface{}{"reservation_id": `7"b`}}))
	msg = readUntil(t, conn, EventResponse)
	assert.Equal(t, "luxstay-receipt-7b.pdf", msg.Data["filename"])

	data, err := base64.StdEncoding.DecodeString(msg.Data["pdf"].(string))
	require.NoError(t, err)
	report, err := pdf.Inspect(data)
	require.NoError(t, err)
	assert.Contains(t, report.Texts, `Reservation ID: #7"b`)
}

func TestWebSocket_Errors(t *testing.T) {
	env := newTestEnv(t)
	conn := dialWS(t, env)

	require.NoError(t, conn.WriteJSON(WSMessage{Event: "print", Data: map[string]interface{}{}}))
	msg := readUntil(t, conn, EventError)
	assert.Equal(t, "unknown event: print", msg.Data["error"])

	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventRender, Data: map[string]interface{}{}}))
	msg = readUntil(t, conn, EventError)
	assert.Equal(t, "document or reservation_id is required", msg.Data["error"])

	require.NoError(t, conn.WriteJSON(WSMessage{Event: EventRender, Data: map[string]interface{}{"reservation_id": "999"}}))
	msg = readUntil(t, conn, EventError)
	assert.Equal(t, "Reservation not found: 999", msg.Data["error"])
}

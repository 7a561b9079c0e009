package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	auditrepository "github.com/ferrolab/certline/internal/audit/repository"
	auditservice "github.com/ferrolab/certline/internal/audit/service"
	"github.com/ferrolab/certline/internal/authorization"
	"github.com/ferrolab/certline/internal/clock"
	"github.com/ferrolab/certline/internal/config"
	"github.com/ferrolab/certline/internal/document"
	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	lotrepository "github.com/ferrolab/certline/internal/lot/repository"
	lotservice "github.com/ferrolab/certline/internal/lot/service"
	"github.com/ferrolab/certline/internal/notification"
	"github.com/ferrolab/certline/internal/providers/telegram"
	"github.com/ferrolab/certline/internal/seed"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&lotdomain.Lot{}, &lotdomain.QCCheck{}, &auditdomain.AuditEntry{}, &seed.Actor{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
		Repo:  auditrepository.Provide(),
	})

	docs := document.NewManagerWithRoots(zap.NewNop(),
		filepath.Join(t.TempDir(), "intake"),
		filepath.Join(t.TempDir(), "archive"))

	dispatcher := notification.NewDispatcher(zap.NewNop(), &telegram.NoOpProvider{}, nil)
	t.Cleanup(dispatcher.Close)

	graph := workflow.NewGraph()
	lotSvc := lotservice.NewService(lotservice.ServiceParam{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Repo:       lotrepository.Provide(),
		Validator:  workflow.NewValidator(graph),
		Graph:      graph,
		Docs:       docs,
		Audit:      auditSvc,
		Dispatcher: dispatcher,
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})

	engine := NewEngine(zap.NewNop())
	srv := NewServer(ServerParams{
		Gin:      engine,
		Cfg:      config.Config{HTTPAddr: ":0"},
		DB:       db,
		LotSvc:   lotSvc,
		AuditSvc: auditSvc,
		AuthzSvc: authzSvc,
		Docs:     docs,
	})
	srv.RegisterRoutes()

	return srv, db
}

func doRequest(t *testing.T, srv *Server, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderActorID, "7")
		req.Header.Set(HeaderActorRole, role)
		req.Header.Set(HeaderActorName, "Петров")
	}

	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func createLotRequest() map[string]any {
	return map[string]any{
		"grade":              "08Х18Н10Т",
		"shape":              "круг",
		"size":               "ф12",
		"quantity":           120.5,
		"unit":               "kg",
		"certificate_number": "C-4411",
		"batch_number":       "П123",
		"melt_number":        "M456",
		"order_number":       "ORD-77",
		"supplier":           "Северсталь",
	}
}

func createLotViaAPI(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/lots", "warehouse", createLotRequest())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data lotdomain.Lot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.ID.String()
}

func TestCreateAndGetLot(t *testing.T) {
	srv, _ := newTestServer(t)

	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/lots/"+id, "warehouse", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data lotdomain.Lot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, workflow.StatusReceived, resp.Data.Status)
	assert.Equal(t, "08Х18Н10Т", resp.Data.Grade)
}

func TestMissingActorHeadersRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/lots", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleHeaderFallsBackToRegistry(t *testing.T) {
	srv, db := newTestServer(t)

	require.NoError(t, db.Exec(
		`INSERT INTO actors (id, name, role, created_at) VALUES (?, ?, ?, ?)`,
		9, "Смирнова", workflow.RoleQC, time.Now().UTC(),
	).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/lots", nil)
	req.Header.Set(HeaderActorID, "9")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUnknownActorWithoutRoleHeaderRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/lots", nil)
	req.Header.Set(HeaderActorID, "424242")
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateForbiddenForLabRole(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/lots", "lab", createLotRequest())
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/transition", "warehouse", map[string]any{
		"target": "PENDING_QC",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data lotdomain.Lot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, workflow.StatusPendingQC, resp.Data.Status)
}

func TestTransitionExpectedStatusConflict(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/transition", "warehouse", map[string]any{
		"target":          "PENDING_QC",
		"expected_status": "QC_PASSED",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTransitionInvalidTargetRejected(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/transition", "warehouse", map[string]any{
		"target": "NOT_A_STATUS",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransitionForbiddenEdgeMapsTo403(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	// APPROVED is a real status but no edge allows RECEIVED -> APPROVED.
	rec := doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/transition", "warehouse", map[string]any{
		"target": "APPROVED",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUnknownLotReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/lots/123456789", "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteLotAdminOnly(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodDelete, "/api/lots/"+id, "warehouse", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, srv, http.MethodDelete, "/api/lots/"+id, "admin", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/lots/"+id, "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQCCheckEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/lots/%s/qc-check", id), "qc", map[string]any{
		"certificate_readable": true,
		"dimensions_match":     true,
		"chemistry":            map[string]string{"C": "0,08"},
		"notes":                "поверхность чистая",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doRequest(t, srv, http.MethodGet, fmt.Sprintf("/api/lots/%s/qc-check", id), "qc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data lotdomain.QCCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.CertificateReadable)

	// warehouse may read checks but not submit them
	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/lots/%s/qc-check", id), "warehouse", map[string]any{
		"certificate_readable": true,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuditLogEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/audit-logs?entity_id="+id, "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []auditdomain.AuditEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data)
	assert.Equal(t, "lot.created", resp.Data[0].Action)

	// warehouse has no audit_log.view capability
	rec = doRequest(t, srv, http.MethodGet, "/api/audit-logs", "warehouse", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDocumentSearchEmptyArchive(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/documents/search?grade=08Х18Н10Т", "qc", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
}

func TestEditRequestEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	id := createLotViaAPI(t, srv)

	rec := doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/edit-request", "qc", map[string]any{
		"reason": "неверно указана плавка",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data lotdomain.Lot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Data.EditRequested)

	rec = doRequest(t, srv, http.MethodPost, "/api/lots/"+id+"/edit-request", "qc", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListLotsInvalidStatusRejected(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/lots?status=BOGUS", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

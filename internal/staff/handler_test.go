package staff

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/lumahq/luma/internal/authz"
)

func newTestRouter(t *testing.T, svc *Service, actor authz.StaffMember) chi.Router {
	t.Helper()
	authorizer := authz.NewAuthorizer(authz.BuiltinDefaults())
	handler := NewHandler(nil, svc, authz.Middleware{Authorizer: authorizer})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(authz.ContextWithStaff(req.Context(), actor)))
		})
	})
	r.Route("/api/staff", handler.MountRoutes)
	return r
}

func TestGrantEndpoint(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	repo := newMemoryStaffRepo(target)
	svc := newTestService(repo)
	actor := adminActor()
	router := newTestRouter(t, svc, actor)

	body := `{"resource":"billing","action":"refund","reason":"temporary cover"}`
	req := httptest.NewRequest(http.MethodPost, "/api/staff/"+target.ID.String()+"/permissions/grant", strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Override overrideView `json:"override"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "billing", resp.Override.Resource)
	require.Equal(t, "refund", resp.Override.Action)
	require.True(t, resp.Override.Granted)
	require.Equal(t, actor.ID, resp.Override.GrantedBy)
	require.Equal(t, "temporary cover", resp.Override.Reason)

	stored, err := repo.GetStaff(req.Context(), target.ID)
	require.NoError(t, err)
	require.Len(t, stored.Overrides, 1)
}

func TestGrantEndpointValidation(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	svc := newTestService(newMemoryStaffRepo(target))
	router := newTestRouter(t, svc, adminActor())

	req := httptest.NewRequest(http.MethodPost, "/api/staff/"+target.ID.String()+"/permissions/grant", strings.NewReader(`{"action":"refund"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "Resource is invalid")
}

func TestGrantEndpointForbiddenForViewer(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	svc := newTestService(newMemoryStaffRepo(target))
	viewer := authz.StaffMember{ID: uuid.NewString(), Role: authz.RoleViewer}
	router := newTestRouter(t, svc, viewer)

	req := httptest.NewRequest(http.MethodPost, "/api/staff/"+target.ID.String()+"/permissions/grant", strings.NewReader(`{"resource":"billing","action":"refund"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusForbidden, rr.Code)
}

func TestPermissionsEndpoint(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	repo := newMemoryStaffRepo(target)
	svc := newTestService(repo)
	actor := adminActor()
	router := newTestRouter(t, svc, actor)

	body := `{"resource":"billing","action":"refund","reason":"cover"}`
	grantReq := httptest.NewRequest(http.MethodPost, "/api/staff/"+target.ID.String()+"/permissions/grant", strings.NewReader(body))
	grantRR := httptest.NewRecorder()
	router.ServeHTTP(grantRR, grantReq)
	require.Equal(t, http.StatusOK, grantRR.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/staff/"+target.ID.String()+"/permissions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Permissions []permissionView `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

	var refund *permissionView
	for i := range resp.Permissions {
		if resp.Permissions[i].Resource == "billing" && resp.Permissions[i].Action == "refund" {
			refund = &resp.Permissions[i]
		}
	}
	require.NotNil(t, refund)
	require.True(t, refund.Granted)
	require.Equal(t, "override", refund.Source)
	require.Equal(t, actor.ID, refund.LastChangedBy)
	require.NotNil(t, refund.LastChangedAt)
}

func TestHistoryEndpoint(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	svc := newTestService(newMemoryStaffRepo(target))
	router := newTestRouter(t, svc, adminActor())

	base := "/api/staff/" + target.ID.String() + "/permissions"
	for _, path := range []string{"/grant", "/revoke"} {
		req := httptest.NewRequest(http.MethodPost, base+path, strings.NewReader(`{"resource":"billing","action":"refund"}`))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, base+"/billing/refund/history", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		History []overrideView `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	require.True(t, resp.History[0].Granted)
	require.False(t, resp.History[1].Granted)
}

func TestStaffIDMustBeUUID(t *testing.T) {
	svc := newTestService(newMemoryStaffRepo())
	router := newTestRouter(t, svc, adminActor())

	req := httptest.NewRequest(http.MethodGet, "/api/staff/not-a-uuid/permissions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownStaffReturns404(t *testing.T) {
	svc := newTestService(newMemoryStaffRepo())
	router := newTestRouter(t, svc, adminActor())

	req := httptest.NewRequest(http.MethodGet, "/api/staff/"+uuid.NewString()+"/permissions", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListStaffEndpoint(t *testing.T) {
	target := testProfile(authz.RoleStaff)
	svc := newTestService(newMemoryStaffRepo(target))
	router := newTestRouter(t, svc, adminActor())

	req := httptest.NewRequest(http.MethodGet, "/api/staff/?tenant_id="+target.TenantID.String(), nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Staff []staffView `json:"staff"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Staff, 1)
	require.Equal(t, target.ID.String(), resp.Staff[0].ID)
	require.Equal(t, string(authz.RoleStaff), resp.Staff[0].Role)
}

package orders

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func TestApproveWithoutBody(t *testing.T) {
	svc := &stubDecider{}
	requestID := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPut, "/x", nil), uuid.New(), enums.RoleAdmin)

	resp := httptest.NewRecorder()
	Approve(svc, nil).ServeHTTP(resp, withParams(req, "id", requestID.String()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.id != requestID || svc.notes != nil {
		t.Fatalf("unexpected approve call id=%s notes=%v", svc.id, svc.notes)
	}
}

func TestApproveAlreadyProcessed(t *testing.T) {
	svc := &stubDecider{err: pkgerrors.New(pkgerrors.CodeAlreadyProcessed, "request already processed")}
	req := authed(httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(`{"notes":"ok"}`)), uuid.New(), enums.RoleAdmin)

	resp := httptest.NewRecorder()
	Approve(svc, nil).ServeHTTP(resp, withParams(req, "id", uuid.NewString()))

	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "ALREADY_PROCESSED") {
		t.Fatalf("expected ALREADY_PROCESSED, got %d %s", resp.Code, resp.Body.String())
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc := &stubDecider{}
	req := authed(httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(`{"notes":"n"}`)), uuid.New(), enums.RoleAdmin)

	resp := httptest.NewRecorder()
	Reject(svc, nil).ServeHTTP(resp, withParams(req, "id", uuid.NewString()))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if svc.id != uuid.Nil {
		t.Fatal("workflow should not be called")
	}

	req = authed(httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(`{"reason":"out of stock"}`)), uuid.New(), enums.RoleAdmin)
	resp = httptest.NewRecorder()
	Reject(svc, nil).ServeHTTP(resp, withParams(req, "id", uuid.NewString()))
	if resp.Code != http.StatusOK || svc.reason == nil || *svc.reason != "out of stock" {
		t.Fatalf("unexpected reject result %d reason=%v", resp.Code, svc.reason)
	}
}

func TestCancelPassesOwnerActor(t *testing.T) {
	svc := &stubDecider{}
	owner := uuid.New()
	req := authed(httptest.NewRequest(http.MethodPut, "/x", strings.NewReader(`{"reason":"changed my mind"}`)), owner, enums.RoleCustomer)

	resp := httptest.NewRecorder()
	Cancel(svc, nil).ServeHTTP(resp, withParams(req, "id", uuid.NewString()))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.actor.UserID != owner || svc.actor.IsAdmin() {
		t.Fatalf("unexpected actor %+v", svc.actor)
	}
}

func TestListUserRequestsAllowsAdmin(t *testing.T) {
	svc := &stubQueries{}
	subject := uuid.New()

	req := authed(httptest.NewRequest(http.MethodGet, "/x?status=pending", nil), uuid.New(), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	ListUserRequests(svc, nil).ServeHTTP(resp, withParams(req, "userId", subject.String()))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.requestFilter.UserID == nil || *svc.requestFilter.UserID != subject {
		t.Fatalf("unexpected user filter %v", svc.requestFilter.UserID)
	}
	if svc.requestFilter.Status == nil || *svc.requestFilter.Status != enums.RequestStatusPending {
		t.Fatalf("unexpected status filter %v", svc.requestFilter.Status)
	}

	req = authed(httptest.NewRequest(http.MethodGet, "/x", nil), uuid.New(), enums.RoleCustomer)
	resp = httptest.NewRecorder()
	ListUserRequests(svc, nil).ServeHTTP(resp, withParams(req, "userId", subject.String()))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestListRequestsRejectsBadStatus(t *testing.T) {
	resp := httptest.NewRecorder()
	ListRequests(&stubQueries{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x?status=maybe", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

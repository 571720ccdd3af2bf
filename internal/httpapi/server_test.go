package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexanderramin/dealroom/internal/access"
	"github.com/alexanderramin/dealroom/internal/domain"
	"github.com/alexanderramin/dealroom/internal/escrow"
	"github.com/alexanderramin/dealroom/internal/fee"
	"github.com/alexanderramin/dealroom/internal/leak"
	"github.com/alexanderramin/dealroom/internal/service"
	"github.com/alexanderramin/dealroom/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    = "owner-1"
	investorID = "investor-1"
	adminID    = "ops-1"
)

type apiFixture struct {
	handler   http.Handler
	auth      *Authenticator
	clock     *testutil.Clock
	projectID string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	database := testutil.NewTestDB(t)
	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	l := testutil.NewFakeLedger()
	l.Fund(investorID, 50000)

	p := testutil.NewTestProject(ownerID, "Solar farm", testutil.WithFundingGoal(100000))
	testutil.SeedProject(t, database, p,
		domain.ProjectField{Name: "summary", Value: "500kW rooftop array"},
		domain.ProjectField{Name: "financials", Value: "IRR 14%", Confidential: true},
	)

	repos := service.NewSQLiteRepos(database)
	uow := testutil.NewTestUoW(database)
	esc := escrow.New(l, repos.Deposits, repos.Alerts, nil, escrow.Config{PlatformAccount: "platform", MaxAttempts: 1},
		escrow.WithClock(clock.Now))
	fees := fee.MustNew(fee.Params{BaseFee: 2000, Rate: decimal.RequireFromString("0.02"), MinFee: 1000, MaxFee: 20000})
	opts := []service.Option{service.WithClock(clock.Now)}

	auth, err := NewAuthenticator("test-secret", clock.Now)
	require.NoError(t, err)

	svc := Services{
		Negotiations: service.NewNegotiationService(repos, uow, esc, fees, nil, 14*24*time.Hour, opts...),
		Messages:     service.NewMessageService(repos, uow, esc, leak.New(), nil, 3, opts...),
		Access:       service.NewAccessService(access.NewGate(repos.Sessions, repos.Projects, clock.Now), opts...),
		Reports:      service.NewReportService(repos, opts...),
	}
	return &apiFixture{handler: NewRouter(svc, auth, nil), auth: auth, clock: clock, projectID: p.ID}
}

func (f *apiFixture) do(t *testing.T, method, path, as string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != "" {
		role := ""
		if as == adminID {
			role = RoleAdmin
		}
		token, err := f.auth.Issue(as, role, 90*24*time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (f *apiFixture) openSession(t *testing.T) string {
	t.Helper()
	rec, out := f.do(t, http.MethodPost, "/v1/sessions", investorID, map[string]any{
		"project_id": f.projectID, "deposit_amount": 5000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["session"].(map[string]any)["id"].(string)
}

func errorCode(out map[string]any) string {
	e, _ := out["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthz_NoAuth(t *testing.T) {
	f := newAPIFixture(t)
	rec, out := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestAPI_RequiresBearerToken(t *testing.T) {
	f := newAPIFixture(t)
	rec, out := f.do(t, http.MethodGet, "/v1/sessions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(out))
	assert.NotEmpty(t, out["request_id"])
}

func TestOpenSession_DuplicateIsConflict(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, out := f.do(t, http.MethodGet, "/v1/sessions/"+id, investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sess := out["session"].(map[string]any)
	assert.Equal(t, "active", sess["status"])
	assert.Equal(t, "preview", sess["access_tier"])
	assert.EqualValues(t, 4000, sess["admin_fee"])

	rec, out = f.do(t, http.MethodPost, "/v1/sessions", investorID, map[string]any{
		"project_id": f.projectID, "deposit_amount": 5000,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(domain.CodeDuplicateActiveNegotiation), errorCode(out))
}

func TestOpenSession_UnknownJSONFieldRejected(t *testing.T) {
	f := newAPIFixture(t)
	rec, out := f.do(t, http.MethodPost, "/v1/sessions", investorID, map[string]any{
		"project_id": f.projectID, "deposit_amount": 5000, "investor_id": "someone-else",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_JSON", errorCode(out))
}

func TestOpenSession_InsufficientFunds(t *testing.T) {
	f := newAPIFixture(t)
	rec, out := f.do(t, http.MethodPost, "/v1/sessions", "broke-investor", map[string]any{
		"project_id": f.projectID, "deposit_amount": 5000,
	})
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.Equal(t, string(domain.CodeInsufficientDepositFunds), errorCode(out))
}

func TestGetSession_NonPartyForbidden(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, _ := f.do(t, http.MethodGet, "/v1/sessions/"+id, "stranger", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = f.do(t, http.MethodGet, "/v1/sessions/missing", investorID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfidentialField_RequiresNDA(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, out := f.do(t, http.MethodGet, "/v1/sessions/"+id+"/fields/financials", investorID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(domain.CodeNDARequired), errorCode(out))

	rec, _ = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/nda", investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, out = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/fields/financials", investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IRR 14%", out["field"].(map[string]any)["value"])

	rec, out = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/fields", investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["fields"], 2)
}

func TestSendMessage_BlockedIsUnprocessable(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, _ := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", investorID, map[string]any{"text": "What is the payback period?"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/messages", investorID, map[string]any{"text": "call me on +1 415 555 0199"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(domain.CodeContactLeakDetected), errorCode(out))
	assert.Equal(t, "message not sent: contact exchange not permitted", out["error"].(map[string]any)["message"])
	details := out["error"].(map[string]any)["details"].(map[string]any)
	assert.NotEmpty(t, details["message_id"])

	rec, out = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["messages"], 1, "counter-party never sees the blocked message")

	rec, out = f.do(t, http.MethodGet, "/v1/sessions/"+id+"/messages", investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["messages"], 2)
}

func TestTransitions_StatusMapping(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, out := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/accept", investorID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(domain.CodeNotAuthorized), errorCode(out))

	rec, out = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/accept", ownerID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "accepted", out["session"].(map[string]any)["status"])

	rec, out = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/reject", ownerID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(domain.CodeInvalidTransition), errorCode(out))

	rec, out = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/agreement", investorID, map[string]any{"amount": 250000, "terms": "5% equity"})
	require.Equal(t, http.StatusOK, rec.Code)
	agreement := out["session"].(map[string]any)["agreement"].(map[string]any)
	assert.EqualValues(t, 250000, agreement["amount"])
}

func TestTransitions_ExpiredIsGone(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)
	f.clock.Advance(15 * 24 * time.Hour)

	rec, out := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/accept", ownerID, nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "negotiation window closed", out["error"].(map[string]any)["message"])

	rec, out = f.do(t, http.MethodGet, "/v1/sessions?status=expired", investorID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["sessions"], 1)
}

func TestListSessions_BadFilter(t *testing.T) {
	f := newAPIFixture(t)
	rec, out := f.do(t, http.MethodGet, "/v1/sessions?status=pending", investorID, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(domain.CodeInvalidArgument), errorCode(out))
}

func TestAdminEndpoints_RequireAdminRole(t *testing.T) {
	f := newAPIFixture(t)
	id := f.openSession(t)

	rec, _ := f.do(t, http.MethodGet, "/v1/admin/summary", ownerID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, out := f.do(t, http.MethodGet, "/v1/admin/summary", adminID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := out["summary"].(map[string]any)
	assert.EqualValues(t, 1, sum["sessions_by_status"].(map[string]any)["active"])
	assert.EqualValues(t, 5000, sum["held_deposits"])

	rec, out = f.do(t, http.MethodGet, "/v1/admin/sessions/"+id, adminID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := out["detail"].(map[string]any)
	assert.Equal(t, "held", detail["deposit"].(map[string]any)["status"])

	for _, path := range []string{"/v1/admin/sessions", "/v1/admin/flags", "/v1/admin/alerts?include_resolved=true"} {
		rec, _ = f.do(t, http.MethodGet, path, adminID, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[domain.Code]int{
		domain.CodeDuplicateActiveNegotiation: http.StatusConflict,
		domain.CodeInvalidTransition:          http.StatusConflict,
		domain.CodeExpiredSession:             http.StatusGone,
		domain.CodeNotAuthorized:              http.StatusForbidden,
		domain.CodeNDARequired:                http.StatusForbidden,
		domain.CodeContactLeakDetected:        http.StatusUnprocessableEntity,
		domain.CodeInsufficientDepositFunds:   http.StatusPaymentRequired,
		domain.CodeNotFound:                   http.StatusNotFound,
		domain.CodeInvalidArgument:            http.StatusBadRequest,
		domain.CodeSettlementFailed:           http.StatusBadGateway,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusFor(domain.New(code, "x")), code)
	}
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}

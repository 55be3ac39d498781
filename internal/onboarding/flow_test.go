package onboarding

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
	"github.com/muzhenpeng-1998/bluecone-console/internal/tokenstore"
)

// backend records every request so the tests can assert on exactly what
// left the client.
type backend struct {
	t        *testing.T
	requests atomic.Int64
	lastPath string
	lastBody map[string]any
	lastRaw  []byte

	srv *httptest.Server
}

func newBackend(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *backend {
	b := &backend{t: t}
	b.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		b.lastPath = r.URL.Path
		b.lastRaw, _ = io.ReadAll(r.Body)
		b.lastBody = nil
		if len(b.lastRaw) > 0 {
			_ = json.Unmarshal(b.lastRaw, &b.lastBody)
		}
		handler(w, r)
	}))
	t.Cleanup(b.srv.Close)
	return b
}

func respondJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func newTestFlow(t *testing.T, b *backend, token string) (*Flow, tokenstore.Store) {
	t.Helper()
	tokens := tokenstore.NewMemStore(token)
	client := gateway.New(b.srv.URL, nil).WithHTTPClient(b.srv.Client())
	return NewFlow(client, tokens), tokens
}

func TestStartPersistsToken(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"sessionToken":"sess-1"}`)
	})
	flow, tokens := newTestFlow(t, b, "")

	resumed, err := flow.Start(context.Background(), "  CH-001  ")
	require.NoError(t, err)
	require.False(t, resumed)
	require.Equal(t, "/api/onboarding/session/start", b.lastPath)
	require.Equal(t, map[string]any{"channelCode": "CH-001"}, b.lastBody)
	require.Equal(t, "sess-1", tokens.Get(), "token persisted before Start returns")
}

func TestStartBlankChannelSendsNoBody(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"sessionToken":"sess-2"}`)
	})
	flow, _ := newTestFlow(t, b, "")

	_, err := flow.Start(context.Background(), "   ")
	require.NoError(t, err)
	require.Empty(t, b.lastRaw, "blank channel code must not produce a body")
}

func TestStartResumesWithoutNetwork(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("resume must not reach the network")
	})
	flow, tokens := newTestFlow(t, b, "sess-existing")

	resumed, err := flow.Start(context.Background(), "CH-001")
	require.NoError(t, err)
	require.True(t, resumed)
	require.Zero(t, b.requests.Load())
	require.Equal(t, "sess-existing", tokens.Get(), "resume never discards the session")
}

func TestSubmitTenantOmitsBlankOptionals(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"tenantId":41}`)
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	id, err := flow.SubmitTenant(context.Background(), TenantInfo{
		TenantName:    "  Acme 茶饮  ",
		LegalName:     "   ",
		SourceChannel: " qr ",
	})
	require.NoError(t, err)
	require.Equal(t, int64(41), id)
	require.Equal(t, "/api/onboarding/tenant/basic-info", b.lastPath)

	require.Equal(t, "Acme 茶饮", b.lastBody["tenantName"])
	require.Equal(t, "sess-1", b.lastBody["sessionToken"])
	require.Equal(t, "qr", b.lastBody["sourceChannel"])
	_, present := b.lastBody["legalName"]
	require.False(t, present, "trimmed-blank optional must be absent, not empty")
	_, present = b.lastBody["businessCategory"]
	require.False(t, present)
}

func TestSubmitTenantGuards(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("guard failures must not reach the network")
	})

	t.Run("missing name", func(t *testing.T) {
		flow, _ := newTestFlow(t, b, "sess-1")
		_, err := flow.SubmitTenant(context.Background(), TenantInfo{TenantName: "   "})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "请填写品牌名称。", verr.Reason)
		require.Zero(t, b.requests.Load())
	})

	t.Run("missing session", func(t *testing.T) {
		flow, _ := newTestFlow(t, b, "")
		_, err := flow.SubmitTenant(context.Background(), TenantInfo{TenantName: "Acme"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "入驻会话已失效，请返回扫码页重新开始。", verr.Reason)
		require.Zero(t, b.requests.Load())
	})
}

func TestSubmitStore(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"storeId":7}`)
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	id, err := flow.SubmitStore(context.Background(), StoreInfo{
		StoreName: " Acme 一号店 ",
		City:      "杭州",
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
	require.Equal(t, "/api/onboarding/store/basic-info", b.lastPath)
	require.Equal(t, "Acme 一号店", b.lastBody["storeName"])
	require.Equal(t, "杭州", b.lastBody["city"])
	_, present := b.lastBody["address"]
	require.False(t, present)

	_, err = flow.SubmitStore(context.Background(), StoreInfo{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "请填写门店名称。", verr.Reason)
}

func TestRegisterFormal(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"taskId":99}`)
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	taskID, err := flow.RegisterFormal(context.Background(), CompanyInfo{
		CompanyName:        "杭州某某餐饮有限公司",
		CompanyCode:        "91330100MA2XXXXXXX",
		LegalPersonaName:   "张三",
		LegalPersonaWechat: "zhangsan_wx",
	})
	require.NoError(t, err)
	require.Equal(t, int64(99), taskID)
	require.Equal(t, "/api/onboarding/wechat/register", b.lastPath)
	require.Equal(t, "FORMAL", b.lastBody["registerType"])
	require.Equal(t, float64(1), b.lastBody["companyCodeType"])
	_, present := b.lastBody["trialMiniProgramName"]
	require.False(t, present, "trial fields stay out of a formal request")
}

func TestRegisterFormalGuard(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("guard failures must not reach the network")
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	// any one missing field trips the combined guard
	_, err := flow.RegisterFormal(context.Background(), CompanyInfo{
		CompanyName:      "杭州某某餐饮有限公司",
		CompanyCode:      "91330100MA2XXXXXXX",
		LegalPersonaName: "张三",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "请完整填写企业名称、统一社会信用代码、法人姓名和法人微信号。", verr.Reason)
	require.Zero(t, b.requests.Load())
}

func TestRegisterTrial(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"taskId":12}`)
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	taskID, err := flow.RegisterTrial(context.Background(), " 体验店 ", " o_abc ")
	require.NoError(t, err)
	require.Equal(t, int64(12), taskID)
	require.Equal(t, "TRIAL", b.lastBody["registerType"])
	require.Equal(t, "体验店", b.lastBody["trialMiniProgramName"])
	require.Equal(t, "o_abc", b.lastBody["trialOpenId"])
	_, present := b.lastBody["companyName"]
	require.False(t, present)

	_, err = flow.RegisterTrial(context.Background(), "体验店", "  ")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestAuthorizeURL(t *testing.T) {
	t.Parallel()

	var gotToken, gotAuthHeader string
	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.URL.Query().Get("sessionToken")
		gotAuthHeader = r.Header.Get("Authorization")
		respondJSON(w, `{"authorizeUrl":"https://mp.weixin.qq.com/authorize?x=1"}`)
	})
	flow, _ := newTestFlow(t, b, "sess 1/x")

	u, err := flow.AuthorizeURL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://mp.weixin.qq.com/authorize?x=1", u)
	require.Equal(t, "sess 1/x", gotToken)
	require.Empty(t, gotAuthHeader, "session token never travels as a bearer")
}

func TestAuthorizeURLMissing(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{}`)
	})
	flow, _ := newTestFlow(t, b, "sess-1")

	_, err := flow.AuthorizeURL(context.Background())
	require.EqualError(t, err, "未获取到授权地址")
}

func TestRestartClearsSession(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, `{"sessionToken":"sess-new"}`)
	})
	flow, tokens := newTestFlow(t, b, "sess-old")

	require.NoError(t, flow.Restart())
	require.Empty(t, tokens.Get())

	// after a restart the next Start opens a fresh session over the wire
	resumed, err := flow.Start(context.Background(), "")
	require.NoError(t, err)
	require.False(t, resumed)
	require.Equal(t, "sess-new", tokens.Get())
}

// The happy path end to end: start, tenant, store, formal registration.
func TestFlowEndToEnd(t *testing.T) {
	t.Parallel()

	b := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/onboarding/session/start":
			respondJSON(w, `{"sessionToken":"T1"}`)
		case "/api/onboarding/tenant/basic-info":
			respondJSON(w, `{"tenantId":100}`)
		case "/api/onboarding/store/basic-info":
			respondJSON(w, `{"storeId":200}`)
		case "/api/onboarding/wechat/register":
			respondJSON(w, `{"taskId":300}`)
		default:
			http.NotFound(w, r)
		}
	})
	flow, tokens := newTestFlow(t, b, "")
	ctx := context.Background()

	resumed, err := flow.Start(ctx, "")
	require.NoError(t, err)
	require.False(t, resumed)
	require.Equal(t, "T1", tokens.Get())

	tenantID, err := flow.SubmitTenant(ctx, TenantInfo{TenantName: "Acme"})
	require.NoError(t, err)
	require.Equal(t, int64(100), tenantID)

	storeID, err := flow.SubmitStore(ctx, StoreInfo{StoreName: "Acme Store"})
	require.NoError(t, err)
	require.Equal(t, int64(200), storeID)

	taskID, err := flow.RegisterFormal(ctx, CompanyInfo{
		CompanyName:        "Acme Ltd",
		CompanyCode:        "91330100MA2XXXXXXX",
		LegalPersonaName:   "张三",
		LegalPersonaWechat: "zhangsan_wx",
	})
	require.NoError(t, err)
	require.Equal(t, int64(300), taskID)
	require.Equal(t, int64(4), b.requests.Load())

	n := ResultNarrative(ResultKindFormal)
	require.Equal(t, "代注册申请已提交", n.Title)
}

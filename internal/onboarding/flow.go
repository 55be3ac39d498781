package onboarding

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
	"github.com/muzhenpeng-1998/bluecone-console/internal/tokenstore"
)

// Step is a position in the onboarding wizard. Every step except StepStart
// requires a live session token.
type Step string

const (
	StepStart  Step = "start"
	StepTenant Step = "tenant"
	StepStore  Step = "store"
	StepWechat Step = "wechat"
	StepResult Step = "result"
)

// Next returns the successor step on a successful submission.
func (s Step) Next() Step {
	switch s {
	case StepStart:
		return StepTenant
	case StepTenant:
		return StepStore
	case StepStore:
		return StepWechat
	default:
		return StepResult
	}
}

// ValidationError is a local guard failure: the remote API was never
// invoked and no persisted state changed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// User-facing copy, kept identical to the H5 wizard.
const (
	msgSessionLost     = "入驻会话已失效，请返回扫码页重新开始。"
	msgTenantNameReq   = "请填写品牌名称。"
	msgStoreNameReq    = "请填写门店名称。"
	msgCompanyFieldReq = "请完整填写企业名称、统一社会信用代码、法人姓名和法人微信号。"
	msgTrialFieldReq   = "请填写试用小程序名称与体验者微信 OpenId。"
	msgNoAuthorizeURL  = "未获取到授权地址"
)

// ErrSessionLost reports a missing session token on a guarded step. It is
// recoverable: restart the flow from the start step.
func ErrSessionLost() *ValidationError {
	return &ValidationError{Reason: msgSessionLost}
}

// Flow drives the ordered onboarding sequence against the backend. It holds
// no step data of its own: the session token in the injected store is the
// only client-side state, so a re-opened console resumes where it left off.
type Flow struct {
	client *gateway.Client
	tokens tokenstore.Store
}

func NewFlow(client *gateway.Client, tokens tokenstore.Store) *Flow {
	return &Flow{client: client, tokens: tokens}
}

// SessionToken returns the persisted token, "" when no session is active.
func (f *Flow) SessionToken() string { return f.tokens.Get() }

// Start opens a session. When a token is already persisted the call is a
// pure navigation shortcut: no network request is issued and resumed is
// true — existing sessions are resumed, never silently discarded.
func (f *Flow) Start(ctx context.Context, channelCode string) (resumed bool, err error) {
	if f.tokens.Get() != "" {
		return true, nil
	}

	var body any
	if code := strings.TrimSpace(channelCode); code != "" {
		body = startSessionRequest{ChannelCode: code}
	}
	payload, err := f.client.Post(ctx, "/api/onboarding/session/start", body)
	if err != nil {
		return false, err
	}
	var resp startSessionResponse
	if err := payload.Decode(&resp); err != nil {
		return false, fmt.Errorf("decode session start: %w", err)
	}
	if resp.SessionToken == "" {
		return false, fmt.Errorf("会话创建失败，请稍后重试")
	}
	if err := f.tokens.Set(resp.SessionToken); err != nil {
		return false, fmt.Errorf("persist session token: %w", err)
	}
	return false, nil
}

// SubmitTenant sends the tenant basic info. Blank optional fields are
// omitted from the payload entirely, never sent as empty strings.
func (f *Flow) SubmitTenant(ctx context.Context, info TenantInfo) (tenantID int64, err error) {
	token := f.tokens.Get()
	if token == "" {
		return 0, ErrSessionLost()
	}
	name := strings.TrimSpace(info.TenantName)
	if name == "" {
		return 0, &ValidationError{Reason: msgTenantNameReq}
	}

	req := tenantBasicInfoRequest{
		SessionToken:     token,
		TenantName:       name,
		LegalName:        strings.TrimSpace(info.LegalName),
		BusinessCategory: strings.TrimSpace(info.BusinessCategory),
		SourceChannel:    strings.TrimSpace(info.SourceChannel),
	}
	payload, err := f.client.Post(ctx, "/api/onboarding/tenant/basic-info", req)
	if err != nil {
		return 0, err
	}
	var resp tenantBasicInfoResponse
	if err := payload.Decode(&resp); err != nil {
		return 0, fmt.Errorf("decode tenant info: %w", err)
	}
	return resp.TenantID, nil
}

// SubmitStore sends the store basic info, same guard and trim/omit rules.
func (f *Flow) SubmitStore(ctx context.Context, info StoreInfo) (storeID int64, err error) {
	token := f.tokens.Get()
	if token == "" {
		return 0, ErrSessionLost()
	}
	name := strings.TrimSpace(info.StoreName)
	if name == "" {
		return 0, &ValidationError{Reason: msgStoreNameReq}
	}

	req := storeBasicInfoRequest{
		SessionToken: token,
		StoreName:    name,
		City:         strings.TrimSpace(info.City),
		District:     strings.TrimSpace(info.District),
		Address:      strings.TrimSpace(info.Address),
		BizScene:     strings.TrimSpace(info.BizScene),
		ContactPhone: strings.TrimSpace(info.ContactPhone),
	}
	payload, err := f.client.Post(ctx, "/api/onboarding/store/basic-info", req)
	if err != nil {
		return 0, err
	}
	var resp storeBasicInfoResponse
	if err := payload.Decode(&resp); err != nil {
		return 0, fmt.Errorf("decode store info: %w", err)
	}
	return resp.StoreID, nil
}

// RegisterFormal submits a delegated (platform-side) mini-program
// registration. All four company fields are required; companyCodeType is
// fixed to 1 (unified social credit code).
func (f *Flow) RegisterFormal(ctx context.Context, info CompanyInfo) (taskID int64, err error) {
	token := f.tokens.Get()
	if token == "" {
		return 0, ErrSessionLost()
	}
	companyName := strings.TrimSpace(info.CompanyName)
	companyCode := strings.TrimSpace(info.CompanyCode)
	legalName := strings.TrimSpace(info.LegalPersonaName)
	legalWechat := strings.TrimSpace(info.LegalPersonaWechat)
	if companyName == "" || companyCode == "" || legalName == "" || legalWechat == "" {
		return 0, &ValidationError{Reason: msgCompanyFieldReq}
	}

	req := wechatRegisterRequest{
		SessionToken:       token,
		RegisterType:       RegisterTypeFormal,
		CompanyName:        companyName,
		CompanyCode:        companyCode,
		CompanyCodeType:    companyCodeTypeUSCC,
		LegalPersonaName:   legalName,
		LegalPersonaWechat: legalWechat,
	}
	return f.register(ctx, req)
}

// RegisterTrial submits a trial mini-program registration.
func (f *Flow) RegisterTrial(ctx context.Context, miniProgramName, openID string) (taskID int64, err error) {
	token := f.tokens.Get()
	if token == "" {
		return 0, ErrSessionLost()
	}
	name := strings.TrimSpace(miniProgramName)
	oid := strings.TrimSpace(openID)
	if name == "" || oid == "" {
		return 0, &ValidationError{Reason: msgTrialFieldReq}
	}

	req := wechatRegisterRequest{
		SessionToken:         token,
		RegisterType:         RegisterTypeTrial,
		TrialMiniProgramName: name,
		TrialOpenID:          oid,
	}
	return f.register(ctx, req)
}

func (f *Flow) register(ctx context.Context, req wechatRegisterRequest) (int64, error) {
	payload, err := f.client.Post(ctx, "/api/onboarding/wechat/register", req)
	if err != nil {
		return 0, err
	}
	var resp wechatRegisterResponse
	if err := payload.Decode(&resp); err != nil {
		return 0, fmt.Errorf("decode register: %w", err)
	}
	return resp.TaskID, nil
}

// AuthorizeURL fetches the wechat authorize URL for binding an existing
// mini-program. Following the URL is a side exit: the flow has no further
// client-side state until the merchant returns via the result route. The
// session token travels in the query string, never in a header.
func (f *Flow) AuthorizeURL(ctx context.Context) (string, error) {
	token := f.tokens.Get()
	if token == "" {
		return "", ErrSessionLost()
	}
	payload, err := f.client.Get(ctx, "/api/onboarding/wechat/auth-url?sessionToken="+url.QueryEscape(token))
	if err != nil {
		return "", err
	}
	var resp wechatAuthURLResponse
	if err := payload.Decode(&resp); err != nil {
		return "", fmt.Errorf("decode auth url: %w", err)
	}
	if resp.AuthorizeURL == "" {
		return "", errors.New(msgNoAuthorizeURL)
	}
	return resp.AuthorizeURL, nil
}

// Restart clears the persisted session and returns the flow to Unstarted.
func (f *Flow) Restart() error {
	return f.tokens.Clear()
}

package onboarding

// RegisterType selects how the mini-program is created.
const (
	RegisterTypeFormal = "FORMAL" // delegated registration with company legal fields
	RegisterTypeTrial  = "TRIAL"  // trial program bound to an experience openid

	// Unified social credit code. The only code type the wizard submits.
	companyCodeTypeUSCC = 1
)

// TenantInfo is the tenant step form. Only TenantName is required.
type TenantInfo struct {
	TenantName       string
	LegalName        string
	BusinessCategory string
	SourceChannel    string
}

// StoreInfo is the store step form. Only StoreName is required.
type StoreInfo struct {
	StoreName    string
	City         string
	District     string
	Address      string
	BizScene     string
	ContactPhone string
}

// CompanyInfo carries the delegated-registration legal fields. All four are
// required.
type CompanyInfo struct {
	CompanyName        string
	CompanyCode        string
	LegalPersonaName   string
	LegalPersonaWechat string
}

// Wire types. Optional fields use omitempty so trimmed-blank values are
// absent from the JSON body rather than empty strings.

type startSessionRequest struct {
	ChannelCode string `json:"channelCode,omitempty"`
}

type startSessionResponse struct {
	SessionToken string `json:"sessionToken"`
}

type tenantBasicInfoRequest struct {
	SessionToken     string `json:"sessionToken"`
	TenantName       string `json:"tenantName"`
	LegalName        string `json:"legalName,omitempty"`
	BusinessCategory string `json:"businessCategory,omitempty"`
	SourceChannel    string `json:"sourceChannel,omitempty"`
}

type tenantBasicInfoResponse struct {
	TenantID int64 `json:"tenantId"`
}

type storeBasicInfoRequest struct {
	SessionToken string `json:"sessionToken"`
	StoreName    string `json:"storeName"`
	City         string `json:"city,omitempty"`
	District     string `json:"district,omitempty"`
	Address      string `json:"address,omitempty"`
	BizScene     string `json:"bizScene,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

type storeBasicInfoResponse struct {
	StoreID int64 `json:"storeId"`
}

type wechatRegisterRequest struct {
	SessionToken         string `json:"sessionToken"`
	RegisterType         string `json:"registerType"`
	CompanyName          string `json:"companyName,omitempty"`
	CompanyCode          string `json:"companyCode,omitempty"`
	CompanyCodeType      int    `json:"companyCodeType,omitempty"`
	LegalPersonaWechat   string `json:"legalPersonaWechat,omitempty"`
	LegalPersonaName     string `json:"legalPersonaName,omitempty"`
	TrialMiniProgramName string `json:"trialMiniProgramName,omitempty"`
	TrialOpenID          string `json:"trialOpenId,omitempty"`
	RequestPayloadJSON   string `json:"requestPayloadJson,omitempty"`
}

type wechatRegisterResponse struct {
	TaskID int64 `json:"taskId"`
}

type wechatAuthURLResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
}

package onboarding

// Narrative is the terminal page copy for one onboarding outcome.
type Narrative struct {
	Title   string
	Message string
}

// Result discriminators carried on the result route.
const (
	ResultKindFormal = "formal"
	ResultKindAuth   = "auth"
)

var resultNarratives = map[string]Narrative{
	ResultKindFormal: {
		Title:   "代注册申请已提交",
		Message: "平台正在为你提交小程序注册资料，审核结果会以短信与站内消息通知，请留意法人微信的确认消息。",
	},
	ResultKindAuth: {
		Title:   "授权绑定完成",
		Message: "你的小程序已授权给平台托管，接下来可以在商家后台继续配置门店与商品。",
	},
}

var resultFallback = Narrative{
	Title:   "入驻流程已完成",
	Message: "资料已提交成功，后续进展会通过消息通知你。",
}

// ResultNarrative maps a terminal discriminator to its canned narrative.
// Unknown or absent kinds fall back to the generic completion message. The
// three-way branch must stay aligned with the wizard's exit paths.
func ResultNarrative(kind string) Narrative {
	if n, ok := resultNarratives[kind]; ok {
		return n
	}
	return resultFallback
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muzhenpeng-1998/bluecone-console/internal/onboarding"
)

// form is a vertical stack of text inputs with one focused at a time.
type form struct {
	fields []formField
	focus  int
}

type formField struct {
	label    string
	required bool
	input    textinput.Model
}

func newField(label string, required bool, placeholder string) formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 128
	in.Width = 40
	return formField{label: label, required: required, input: in}
}

func newForm(fields ...formField) *form {
	f := &form{fields: fields}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

func (f *form) next() {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + 1) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

func (f *form) prev() {
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus - 1 + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd
}

func (f *form) value(i int) string { return f.fields[i].input.Value() }

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.SetValue("")
		f.fields[i].input.Blur()
	}
	f.focus = 0
	f.fields[0].input.Focus()
}

func (f *form) view() string {
	var b strings.Builder
	for i, field := range f.fields {
		marker := "  "
		if i == f.focus {
			marker = cursorStyle.Render("> ")
		}
		label := field.label
		if field.required {
			label += requiredStyle.Render(" *")
		}
		fmt.Fprintf(&b, "%s%-28s %s\n", marker, label, field.input.View())
	}
	return b.String()
}

// wechatMode is the sub-state of the wechat step: pick a path, then either
// fill the formal/trial form or follow the authorize URL out of the flow.
type wechatMode string

const (
	wechatMenu   wechatMode = "menu"
	wechatFormal wechatMode = "formal"
	wechatTrial  wechatMode = "trial"
	wechatAuth   wechatMode = "auth"
)

// Field order constants keep form indices readable.
const (
	tenantFieldName = iota
	tenantFieldLegalName
	tenantFieldCategory
	tenantFieldChannel
)

const (
	storeFieldName = iota
	storeFieldCity
	storeFieldDistrict
	storeFieldAddress
	storeFieldScene
	storeFieldPhone
)

const (
	companyFieldName = iota
	companyFieldCode
	companyFieldLegalName
	companyFieldLegalWechat
)

const (
	trialFieldName = iota
	trialFieldOpenID
)

func newTenantForm() *form {
	return newForm(
		newField("品牌名称", true, "商家品牌/字号"),
		newField("营业执照名称", false, ""),
		newField("经营品类", false, "如 茶饮 / 烘焙"),
		newField("来源渠道", false, ""),
	)
}

func newStoreForm() *form {
	return newForm(
		newField("门店名称", true, ""),
		newField("城市", false, ""),
		newField("区县", false, ""),
		newField("详细地址", false, ""),
		newField("业务场景", false, "如 DINE_IN / TAKEAWAY"),
		newField("联系电话", false, ""),
	)
}

func newCompanyForm() *form {
	return newForm(
		newField("企业/个体工商户名称", true, "营业执照上的名称"),
		newField("统一社会信用代码", true, "18位统一社会信用代码"),
		newField("法人姓名", true, ""),
		newField("法人微信号", true, ""),
	)
}

func newTrialForm() *form {
	return newForm(
		newField("试用小程序名称", true, ""),
		newField("体验者微信 OpenId", true, ""),
	)
}

func (a *App) tenantInfo() onboarding.TenantInfo {
	return onboarding.TenantInfo{
		TenantName:       a.tenantForm.value(tenantFieldName),
		LegalName:        a.tenantForm.value(tenantFieldLegalName),
		BusinessCategory: a.tenantForm.value(tenantFieldCategory),
		SourceChannel:    a.tenantForm.value(tenantFieldChannel),
	}
}

func (a *App) storeInfo() onboarding.StoreInfo {
	return onboarding.StoreInfo{
		StoreName:    a.storeForm.value(storeFieldName),
		City:         a.storeForm.value(storeFieldCity),
		District:     a.storeForm.value(storeFieldDistrict),
		Address:      a.storeForm.value(storeFieldAddress),
		BizScene:     a.storeForm.value(storeFieldScene),
		ContactPhone: a.storeForm.value(storeFieldPhone),
	}
}

func (a *App) companyInfo() onboarding.CompanyInfo {
	return onboarding.CompanyInfo{
		CompanyName:        a.companyForm.value(companyFieldName),
		CompanyCode:        a.companyForm.value(companyFieldCode),
		LegalPersonaName:   a.companyForm.value(companyFieldLegalName),
		LegalPersonaWechat: a.companyForm.value(companyFieldLegalWechat),
	}
}

// handleWizardKey routes keys for the onboarding wizard views. While a
// submission is in flight the triggering keys are ignored, which is the
// one-mutation-in-flight convention the whole flow relies on.
func (a *App) handleWizardKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.step {
	case onboarding.StepStart:
		return a.handleStartKey(m)
	case onboarding.StepTenant:
		return a.handleFormStepKey(m, a.tenantForm, func() tea.Cmd { return a.submitTenantCmd() })
	case onboarding.StepStore:
		return a.handleFormStepKey(m, a.storeForm, func() tea.Cmd { return a.submitStoreCmd() })
	case onboarding.StepWechat:
		return a.handleWechatKey(m)
	case onboarding.StepResult:
		return a.handleResultKey(m)
	}
	return a, nil
}

func (a *App) handleStartKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyEnter:
		if a.wizardLoading {
			return a, nil
		}
		a.wizardLoading = true
		a.wizardErr = ""
		return a, a.startSessionCmd(a.channelInput.Value())
	}
	var cmd tea.Cmd
	a.channelInput, cmd = a.channelInput.Update(m)
	return a, cmd
}

func (a *App) handleFormStepKey(m tea.KeyMsg, f *form, submit func() tea.Cmd) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		f.next()
		return a, nil
	case tea.KeyShiftTab, tea.KeyUp:
		f.prev()
		return a, nil
	case tea.KeyEnter:
		if a.wizardLoading {
			return a, nil
		}
		a.wizardLoading = true
		a.wizardErr = ""
		return a, submit()
	}
	return a, f.update(m)
}

func (a *App) handleWechatKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.wechatMode {
	case wechatMenu:
		switch m.String() {
		case "esc":
			a.view = viewHome
		case "1":
			a.wechatMode = wechatFormal
		case "2":
			if a.wizardLoading {
				return a, nil
			}
			a.wechatMode = wechatAuth
			a.wizardLoading = true
			a.wizardErr = ""
			return a, a.authURLCmd()
		case "3":
			a.wechatMode = wechatTrial
		}
		return a, nil
	case wechatFormal:
		if m.Type == tea.KeyEsc {
			a.wechatMode = wechatMenu
			return a, nil
		}
		return a.handleFormStepKey(m, a.companyForm, func() tea.Cmd { return a.registerFormalCmd() })
	case wechatTrial:
		if m.Type == tea.KeyEsc {
			a.wechatMode = wechatMenu
			return a, nil
		}
		return a.handleFormStepKey(m, a.trialForm, func() tea.Cmd { return a.registerTrialCmd() })
	case wechatAuth:
		switch m.Type {
		case tea.KeyEsc:
			a.wechatMode = wechatMenu
			a.authURL = ""
		case tea.KeyEnter:
			// The merchant finished the authorization in the browser and
			// came back; this mirrors the H5 return route.
			if a.authURL != "" {
				a.resultKind = onboarding.ResultKindAuth
				a.step = onboarding.StepResult
			}
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleResultKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.view = viewHome
	case "r":
		if err := a.flow.Restart(); err != nil {
			a.wizardErr = err.Error()
			return a, nil
		}
		a.resetWizard()
	}
	return a, nil
}

func (a *App) resetWizard() {
	a.step = onboarding.StepStart
	a.wechatMode = wechatMenu
	a.wizardErr = ""
	a.authURL = ""
	a.resultKind = ""
	a.taskID = 0
	a.tenantID = 0
	a.storeID = 0
	a.channelInput.SetValue("")
	a.tenantForm.reset()
	a.storeForm.reset()
	a.companyForm.reset()
	a.trialForm.reset()
}

func (a *App) renderWizard() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("商家入驻向导") + "  " + stepTrail(a.step) + "\n\n")

	switch a.step {
	case onboarding.StepStart:
		if a.flow.SessionToken() != "" {
			b.WriteString("检测到未完成的入驻会话，回车将直接续接到品牌信息步骤。\n\n")
		} else {
			b.WriteString("渠道码(可选): " + a.channelInput.View() + "\n\n")
		}
		b.WriteString(helpStyle.Render("[enter] 开始/继续  [esc] 返回首页"))
	case onboarding.StepTenant:
		b.WriteString(a.tenantForm.view())
		b.WriteString("\n" + helpStyle.Render("[tab] 切换  [enter] 提交  [esc] 返回首页"))
	case onboarding.StepStore:
		b.WriteString(a.storeForm.view())
		b.WriteString("\n" + helpStyle.Render("[tab] 切换  [enter] 提交  [esc] 返回首页"))
	case onboarding.StepWechat:
		b.WriteString(a.renderWechat())
	case onboarding.StepResult:
		b.WriteString(a.renderResult())
	}

	if a.wizardLoading {
		b.WriteString("\n" + a.spin.View() + " 提交中...")
	}
	if a.wizardErr != "" {
		b.WriteString("\n" + errorStyle.Render(a.wizardErr))
	}
	return b.String()
}

func (a *App) renderWechat() string {
	switch a.wechatMode {
	case wechatFormal:
		return subtitleStyle.Render("方式一：代注册正式小程序") + "\n由平台帮你提交企业主体资料，快速生成小程序。\n\n" +
			a.companyForm.view() + "\n" + helpStyle.Render("[tab] 切换  [enter] 提交代注册申请  [esc] 返回")
	case wechatTrial:
		return subtitleStyle.Render("方式三：注册试用小程序") + "\n\n" +
			a.trialForm.view() + "\n" + helpStyle.Render("[tab] 切换  [enter] 提交  [esc] 返回")
	case wechatAuth:
		out := subtitleStyle.Render("方式二：绑定已有小程序") + "\n"
		if a.authURL != "" {
			out += "请在浏览器中打开以下地址完成微信授权：\n\n" + urlStyle.Render(a.authURL) +
				"\n\n" + helpStyle.Render("[enter] 我已完成授权  [esc] 返回")
		} else {
			out += "正在获取授权地址...\n" + helpStyle.Render("[esc] 返回")
		}
		return out
	default:
		return "选择小程序开通方式：\n\n" +
			"  [1] 代注册正式小程序（平台代提交企业资料）\n" +
			"  [2] 绑定已有小程序（微信授权）\n" +
			"  [3] 注册试用小程序\n\n" +
			helpStyle.Render("[esc] 返回首页")
	}
}

func (a *App) renderResult() string {
	n := onboarding.ResultNarrative(a.resultKind)
	out := titleStyle.Render(n.Title) + "\n\n" + n.Message + "\n"
	if a.resultKind == onboarding.ResultKindFormal && a.taskID != 0 {
		out += fmt.Sprintf("\n注册任务编号: %d\n", a.taskID)
	}
	out += "\n" + helpStyle.Render("[r] 重新开始入驻  [esc] 返回首页")
	return out
}

func stepTrail(current onboarding.Step) string {
	order := []onboarding.Step{
		onboarding.StepStart, onboarding.StepTenant, onboarding.StepStore,
		onboarding.StepWechat, onboarding.StepResult,
	}
	labels := map[onboarding.Step]string{
		onboarding.StepStart:  "开始",
		onboarding.StepTenant: "品牌",
		onboarding.StepStore:  "门店",
		onboarding.StepWechat: "小程序",
		onboarding.StepResult: "完成",
	}
	parts := make([]string, 0, len(order))
	for _, s := range order {
		label := labels[s]
		if s == current {
			label = activeStepStyle.Render(label)
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " → ")
}

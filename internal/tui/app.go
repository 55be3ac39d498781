package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muzhenpeng-1998/bluecone-console/internal/config"
	"github.com/muzhenpeng-1998/bluecone-console/internal/onboarding"
	"github.com/muzhenpeng-1998/bluecone-console/internal/ops"
	"github.com/muzhenpeng-1998/bluecone-console/internal/tokenstore"
)

// App ties the onboarding wizard and the ops panels into one program.
type App struct {
	ctx      context.Context
	cfg      config.Config
	flow     *onboarding.Flow
	admin    *ops.AdminService
	cache    *ops.CacheInvalService
	feed     *ops.Feed
	adminTok tokenstore.Store

	view viewState
	spin spinner.Model

	// wizard
	step          onboarding.Step
	wechatMode    wechatMode
	channelInput  textinput.Model
	tenantForm    *form
	storeForm     *form
	companyForm   *form
	trialForm     *form
	wizardLoading bool
	wizardErr     string
	authURL       string
	resultKind    string
	taskID        int64
	tenantID      int64
	storeID       int64

	// outbox panel
	outbox        []ops.OutboxRecord
	outboxCursor  int
	outboxLoading bool
	outboxErr     string
	retryingID    string

	// scheduler panel
	jobs         []ops.JobDefinition
	jobCursor    int
	jobsLoading  bool
	jobsErr      string
	triggeringID string
	jobsNote     string

	// config panel
	props        []ops.ConfigProperty
	propsLoading bool
	propsErr     string
	cfgTenantIn  textinput.Model
	cfgEnvIn     textinput.Model
	cfgQueryIn   textinput.Model
	cfgFocus     int

	// notification panel
	notifyForm    *form
	notifyPrio    string
	notifyLoading bool
	notifyMsg     string
	notifyErr     string

	// cache-inval panel: summary and recent track independent flags so a
	// failure on one never blocks the other.
	summary        *ops.Summary
	summaryLoading bool
	summaryErr     string
	recentLoading  bool
	recentErr      string
	civWindowIn    textinput.Model
	civTenantIn    textinput.Model
	civScopeIn     textinput.Model
	civNamespaceIn textinput.Model
	civFocus       int
	recentCursor   int

	// token settings
	tokenInput   textinput.Model
	tokenMessage string
}

type viewState string

const (
	viewHome      viewState = "home"
	viewWizard    viewState = "wizard"
	viewOutbox    viewState = "outbox"
	viewScheduler viewState = "scheduler"
	viewConfig    viewState = "config"
	viewNotify    viewState = "notify"
	viewCacheInv  viewState = "cacheinval"
	viewTokens    viewState = "tokens"
)

// New wires the app. flow owns the session-token store internally; adminTok
// is the bearer store surfaced in the token settings view.
func New(ctx context.Context, cfg config.Config, flow *onboarding.Flow,
	admin *ops.AdminService, cache *ops.CacheInvalService, feed *ops.Feed,
	adminTok tokenstore.Store) *App {

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	channel := textinput.New()
	channel.Placeholder = "channelCode"
	channel.Width = 24
	channel.Focus()

	tokenIn := textinput.New()
	tokenIn.Placeholder = "Bearer token"
	tokenIn.Width = 48
	tokenIn.EchoMode = textinput.EchoPassword
	tokenIn.SetValue(adminTok.Get())

	cfgTenant := textinput.New()
	cfgTenant.SetValue(cfg.UI.DefaultTenantID)
	cfgTenant.Width = 16
	cfgTenant.Focus()
	cfgEnv := textinput.New()
	cfgEnv.SetValue(cfg.UI.DefaultEnv)
	cfgEnv.Width = 10
	cfgQuery := textinput.New()
	cfgQuery.Placeholder = "关键字过滤"
	cfgQuery.Width = 24

	civWindow := textinput.New()
	civWindow.SetValue(cfg.UI.DefaultWindow)
	civWindow.Width = 8
	civWindow.Focus()
	civTenant := textinput.New()
	civTenant.Width = 16
	civScope := textinput.New()
	civScope.Width = 14
	civNamespace := textinput.New()
	civNamespace.Width = 18

	notify := newForm(
		newField("ScenarioCode", true, "如 ORDER_PAID"),
		newField("Title", true, ""),
		newField("Content", false, ""),
	)

	if feed.Window == "" {
		feed.Window = cfg.UI.DefaultWindow
	}

	return &App{
		ctx:            ctx,
		cfg:            cfg,
		flow:           flow,
		admin:          admin,
		cache:          cache,
		feed:           feed,
		adminTok:       adminTok,
		view:           viewHome,
		spin:           sp,
		step:           onboarding.StepStart,
		wechatMode:     wechatMenu,
		channelInput:   channel,
		tenantForm:     newTenantForm(),
		storeForm:      newStoreForm(),
		companyForm:    newCompanyForm(),
		trialForm:      newTrialForm(),
		cfgTenantIn:    cfgTenant,
		cfgEnvIn:       cfgEnv,
		cfgQueryIn:     cfgQuery,
		notifyForm:     notify,
		notifyPrio:     "NORMAL",
		civWindowIn:    civWindow,
		civTenantIn:    civTenant,
		civScopeIn:     civScope,
		civNamespaceIn: civNamespace,
		tokenInput:     tokenIn,
	}
}

func (a *App) Init() tea.Cmd {
	return a.spin.Tick
}

// messages

type sessionStartedMsg struct{ resumed bool }

type tenantSavedMsg struct{ tenantID int64 }

type storeSavedMsg struct{ storeID int64 }

type registerDoneMsg struct{ taskID int64 }

type authURLMsg struct{ url string }

type wizardErrMsg struct{ err error }

type outboxMsg []ops.OutboxRecord

type outboxErrMsg struct{ err error }

type retryDoneMsg struct{ id string }

type retryErrMsg struct {
	id  string
	err error
}

type jobsMsg []ops.JobDefinition

type jobsErrMsg struct{ err error }

type triggerDoneMsg struct{ id string }

type triggerErrMsg struct {
	id  string
	err error
}

type propsMsg []ops.ConfigProperty

type propsErrMsg struct{ err error }

type notifyDoneMsg struct{ text string }

type notifyErrMsg struct{ err error }

type summaryMsg struct{ summary *ops.Summary }

type summaryErrMsg struct{ err error }

type recentDoneMsg struct{}

type recentErrMsg struct{ err error }

// commands; every command converts its fault into a message so the Update
// loop can clear the matching loading flag. No error escapes the boundary.

func (a *App) startSessionCmd(channelCode string) tea.Cmd {
	return func() tea.Msg {
		resumed, err := a.flow.Start(a.ctx, channelCode)
		if err != nil {
			return wizardErrMsg{err}
		}
		return sessionStartedMsg{resumed: resumed}
	}
}

func (a *App) submitTenantCmd() tea.Cmd {
	info := a.tenantInfo()
	return func() tea.Msg {
		id, err := a.flow.SubmitTenant(a.ctx, info)
		if err != nil {
			return wizardErrMsg{err}
		}
		return tenantSavedMsg{tenantID: id}
	}
}

func (a *App) submitStoreCmd() tea.Cmd {
	info := a.storeInfo()
	return func() tea.Msg {
		id, err := a.flow.SubmitStore(a.ctx, info)
		if err != nil {
			return wizardErrMsg{err}
		}
		return storeSavedMsg{storeID: id}
	}
}

func (a *App) registerFormalCmd() tea.Cmd {
	info := a.companyInfo()
	return func() tea.Msg {
		taskID, err := a.flow.RegisterFormal(a.ctx, info)
		if err != nil {
			return wizardErrMsg{err}
		}
		return registerDoneMsg{taskID: taskID}
	}
}

func (a *App) registerTrialCmd() tea.Cmd {
	name := a.trialForm.value(trialFieldName)
	openID := a.trialForm.value(trialFieldOpenID)
	return func() tea.Msg {
		taskID, err := a.flow.RegisterTrial(a.ctx, name, openID)
		if err != nil {
			return wizardErrMsg{err}
		}
		return registerDoneMsg{taskID: taskID}
	}
}

func (a *App) authURLCmd() tea.Cmd {
	return func() tea.Msg {
		u, err := a.flow.AuthorizeURL(a.ctx)
		if err != nil {
			return wizardErrMsg{err}
		}
		return authURLMsg{url: u}
	}
}

func (a *App) loadOutboxCmd() tea.Cmd {
	return func() tea.Msg {
		list, err := a.admin.ListOutbox(a.ctx, 1, 20)
		if err != nil {
			return outboxErrMsg{err}
		}
		return outboxMsg(list)
	}
}

func (a *App) retryOutboxCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.admin.RetryOutbox(a.ctx, id); err != nil {
			return retryErrMsg{id: id, err: err}
		}
		return retryDoneMsg{id: id}
	}
}

func (a *App) loadJobsCmd() tea.Cmd {
	return func() tea.Msg {
		list, err := a.admin.ListJobs(a.ctx)
		if err != nil {
			return jobsErrMsg{err}
		}
		return jobsMsg(list)
	}
}

func (a *App) triggerJobCmd(id string) tea.Cmd {
	return func() tea.Msg {
		if err := a.admin.TriggerJob(a.ctx, id); err != nil {
			return triggerErrMsg{id: id, err: err}
		}
		return triggerDoneMsg{id: id}
	}
}

func (a *App) loadPropsCmd(tenantID, env string) tea.Cmd {
	return func() tea.Msg {
		list, err := a.admin.ListConfigProperties(a.ctx, tenantID, env)
		if err != nil {
			return propsErrMsg{err}
		}
		return propsMsg(list)
	}
}

func (a *App) sendNotifyCmd(f ops.NotificationForm) tea.Cmd {
	return func() tea.Msg {
		text, err := a.admin.SendTestNotification(a.ctx, f)
		if err != nil {
			return notifyErrMsg{err}
		}
		return notifyDoneMsg{text: text}
	}
}

func (a *App) loadSummaryCmd(window string) tea.Cmd {
	return func() tea.Msg {
		s, err := a.cache.Summary(a.ctx, window)
		if err != nil {
			return summaryErrMsg{err}
		}
		return summaryMsg{summary: s}
	}
}

func (a *App) loadRecentCmd(reset bool) tea.Cmd {
	return func() tea.Msg {
		if err := a.feed.LoadRecent(a.ctx, reset); err != nil {
			return recentErrMsg{err}
		}
		return recentDoneMsg{}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(m)
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd

	case sessionStartedMsg:
		a.wizardLoading = false
		a.step = onboarding.StepTenant
	case tenantSavedMsg:
		a.wizardLoading = false
		a.tenantID = m.tenantID
		a.step = onboarding.StepStore
	case storeSavedMsg:
		a.wizardLoading = false
		a.storeID = m.storeID
		a.step = onboarding.StepWechat
		a.wechatMode = wechatMenu
	case registerDoneMsg:
		a.wizardLoading = false
		a.taskID = m.taskID
		a.resultKind = onboarding.ResultKindFormal
		a.step = onboarding.StepResult
	case authURLMsg:
		a.wizardLoading = false
		a.authURL = m.url
	case wizardErrMsg:
		a.wizardLoading = false
		a.wizardErr = m.err.Error()
		if a.wechatMode == wechatAuth && a.authURL == "" {
			a.wechatMode = wechatMenu
		}

	case outboxMsg:
		a.outboxLoading = false
		a.outbox = []ops.OutboxRecord(m)
		if a.outboxCursor >= len(a.outbox) {
			a.outboxCursor = 0
		}
	case outboxErrMsg:
		a.outboxLoading = false
		a.outboxErr = m.err.Error()
	case retryDoneMsg:
		a.retryingID = ""
		a.outboxLoading = true
		return a, a.loadOutboxCmd()
	case retryErrMsg:
		a.retryingID = ""
		a.outboxErr = m.err.Error()

	case jobsMsg:
		a.jobsLoading = false
		a.jobs = []ops.JobDefinition(m)
		if a.jobCursor >= len(a.jobs) {
			a.jobCursor = 0
		}
	case jobsErrMsg:
		a.jobsLoading = false
		a.jobsErr = m.err.Error()
	case triggerDoneMsg:
		a.triggeringID = ""
		a.jobsNote = "已触发 " + m.id
	case triggerErrMsg:
		a.triggeringID = ""
		a.jobsErr = m.err.Error()

	case propsMsg:
		a.propsLoading = false
		a.props = []ops.ConfigProperty(m)
	case propsErrMsg:
		a.propsLoading = false
		a.propsErr = m.err.Error()

	case notifyDoneMsg:
		a.notifyLoading = false
		a.notifyMsg = m.text
	case notifyErrMsg:
		a.notifyLoading = false
		a.notifyErr = m.err.Error()

	case summaryMsg:
		a.summaryLoading = false
		a.summary = m.summary
	case summaryErrMsg:
		a.summaryLoading = false
		a.summaryErr = m.err.Error()
	case recentDoneMsg:
		a.recentLoading = false
		if a.recentCursor >= len(a.feed.Items()) {
			a.recentCursor = 0
		}
	case recentErrMsg:
		a.recentLoading = false
		a.recentErr = m.err.Error()
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.view == viewWizard {
		return a.handleWizardKey(m)
	}
	return a.handlePanelKey(m)
}

func (a *App) View() string {
	var body string
	switch a.view {
	case viewWizard:
		body = a.renderWizard()
	case viewOutbox:
		body = a.renderOutbox()
	case viewScheduler:
		body = a.renderScheduler()
	case viewConfig:
		body = a.renderConfig()
	case viewNotify:
		body = a.renderNotify()
	case viewCacheInv:
		body = a.renderCacheInval()
	case viewTokens:
		body = a.renderTokens()
	default:
		body = a.renderHome()
	}
	return body + "\n"
}

// styles
var (
	titleStyle      = lipgloss.NewStyle().Bold(true).Underline(true)
	subtitleStyle   = lipgloss.NewStyle().Bold(true)
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	cursorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	requiredStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	urlStyle        = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("75"))
	stormStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	activeStepStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

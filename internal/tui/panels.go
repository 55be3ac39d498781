package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muzhenpeng-1998/bluecone-console/internal/ops"
)

func (a *App) handlePanelKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.view {
	case viewHome:
		return a.handleHomeKey(m)
	case viewOutbox:
		return a.handleOutboxKey(m)
	case viewScheduler:
		return a.handleSchedulerKey(m)
	case viewConfig:
		return a.handleConfigKey(m)
	case viewNotify:
		return a.handleNotifyKey(m)
	case viewCacheInv:
		return a.handleCacheInvalKey(m)
	case viewTokens:
		return a.handleTokensKey(m)
	}
	return a, nil
}

func (a *App) handleHomeKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "1":
		a.view = viewWizard
	case "2":
		a.view = viewOutbox
		a.outboxErr = ""
		a.outboxLoading = true
		return a, a.loadOutboxCmd()
	case "3":
		a.view = viewScheduler
		a.jobsErr = ""
		a.jobsNote = ""
		a.jobsLoading = true
		return a, a.loadJobsCmd()
	case "4":
		a.view = viewConfig
	case "5":
		a.view = viewNotify
	case "6":
		a.view = viewCacheInv
	case "7":
		a.view = viewTokens
		a.tokenMessage = ""
	}
	return a, nil
}

func (a *App) handleOutboxKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.view = viewHome
	case "up", "k":
		if a.outboxCursor > 0 {
			a.outboxCursor--
		}
	case "down", "j":
		if a.outboxCursor < len(a.outbox)-1 {
			a.outboxCursor++
		}
	case "l":
		if a.outboxLoading {
			return a, nil
		}
		a.outboxErr = ""
		a.outboxLoading = true
		return a, a.loadOutboxCmd()
	case "r":
		if a.outboxLoading || a.retryingID != "" || len(a.outbox) == 0 {
			return a, nil
		}
		id := a.outbox[a.outboxCursor].ID
		a.outboxErr = ""
		a.retryingID = id
		return a, a.retryOutboxCmd(id)
	}
	return a, nil
}

func (a *App) handleSchedulerKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "esc":
		a.view = viewHome
	case "up", "k":
		if a.jobCursor > 0 {
			a.jobCursor--
		}
	case "down", "j":
		if a.jobCursor < len(a.jobs)-1 {
			a.jobCursor++
		}
	case "l":
		if a.jobsLoading {
			return a, nil
		}
		a.jobsErr = ""
		a.jobsNote = ""
		a.jobsLoading = true
		return a, a.loadJobsCmd()
	case "t":
		if a.jobsLoading || a.triggeringID != "" || len(a.jobs) == 0 {
			return a, nil
		}
		id := a.jobs[a.jobCursor].ID
		a.jobsErr = ""
		a.jobsNote = ""
		a.triggeringID = id
		return a, a.triggerJobCmd(id)
	}
	return a, nil
}

func (a *App) handleConfigKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyTab:
		a.cfgFocus = (a.cfgFocus + 1) % 3
		a.syncConfigFocus()
		return a, nil
	case tea.KeyShiftTab:
		a.cfgFocus = (a.cfgFocus + 2) % 3
		a.syncConfigFocus()
		return a, nil
	case tea.KeyEnter:
		if a.propsLoading {
			return a, nil
		}
		tenantID := strings.TrimSpace(a.cfgTenantIn.Value())
		env := strings.TrimSpace(a.cfgEnvIn.Value())
		if tenantID == "" || env == "" {
			a.propsErr = "请填写 tenantId 与 env"
			return a, nil
		}
		a.propsErr = ""
		a.propsLoading = true
		return a, a.loadPropsCmd(tenantID, env)
	}

	var cmd tea.Cmd
	switch a.cfgFocus {
	case 0:
		a.cfgTenantIn, cmd = a.cfgTenantIn.Update(m)
	case 1:
		a.cfgEnvIn, cmd = a.cfgEnvIn.Update(m)
	default:
		a.cfgQueryIn, cmd = a.cfgQueryIn.Update(m)
	}
	return a, cmd
}

func (a *App) syncConfigFocus() {
	a.cfgTenantIn.Blur()
	a.cfgEnvIn.Blur()
	a.cfgQueryIn.Blur()
	switch a.cfgFocus {
	case 0:
		a.cfgTenantIn.Focus()
	case 1:
		a.cfgEnvIn.Focus()
	default:
		a.cfgQueryIn.Focus()
	}
}

func (a *App) handleNotifyKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyTab, tea.KeyDown:
		a.notifyForm.next()
		return a, nil
	case tea.KeyShiftTab, tea.KeyUp:
		a.notifyForm.prev()
		return a, nil
	case tea.KeyCtrlP:
		a.notifyPrio = nextPriority(a.notifyPrio)
		return a, nil
	case tea.KeyCtrlR:
		a.notifyForm.reset()
		a.notifyPrio = "NORMAL"
		a.notifyMsg = ""
		a.notifyErr = ""
		return a, nil
	case tea.KeyEnter:
		if a.notifyLoading {
			return a, nil
		}
		form := ops.NotificationForm{
			ScenarioCode: strings.TrimSpace(a.notifyForm.value(0)),
			Title:        strings.TrimSpace(a.notifyForm.value(1)),
			Content:      a.notifyForm.value(2),
			Priority:     a.notifyPrio,
		}
		if form.ScenarioCode == "" || form.Title == "" {
			a.notifyErr = "ScenarioCode 与 Title 必填"
			return a, nil
		}
		a.notifyErr = ""
		a.notifyMsg = ""
		a.notifyLoading = true
		return a, a.sendNotifyCmd(form)
	}
	return a, a.notifyForm.update(m)
}

func nextPriority(p string) string {
	switch p {
	case "NORMAL":
		return "HIGH"
	case "HIGH":
		return "LOW"
	default:
		return "NORMAL"
	}
}

func (a *App) handleCacheInvalKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyTab:
		a.civFocus = (a.civFocus + 1) % 4
		a.syncCacheInvalFocus()
		return a, nil
	case tea.KeyShiftTab:
		a.civFocus = (a.civFocus + 3) % 4
		a.syncCacheInvalFocus()
		return a, nil
	case tea.KeyUp:
		if a.recentCursor > 0 {
			a.recentCursor--
		}
		return a, nil
	case tea.KeyDown:
		if a.recentCursor < len(a.feed.Items())-1 {
			a.recentCursor++
		}
		return a, nil
	case tea.KeyEnter:
		// One keystroke refreshes both halves; their loading and error
		// flags stay independent.
		var cmds []tea.Cmd
		a.applyFeedFilters()
		if !a.summaryLoading {
			a.summaryErr = ""
			a.summaryLoading = true
			cmds = append(cmds, a.loadSummaryCmd(a.feed.Window))
		}
		if !a.recentLoading {
			a.recentErr = ""
			a.recentLoading = true
			a.recentCursor = 0
			cmds = append(cmds, a.loadRecentCmd(true))
		}
		return a, tea.Batch(cmds...)
	case tea.KeyCtrlN:
		// load more; suppressed while loading and once the feed reports
		// exhaustion (nil cursor after a completed load)
		if a.recentLoading || a.feed.Exhausted() {
			return a, nil
		}
		a.applyFeedFilters()
		a.recentErr = ""
		a.recentLoading = true
		return a, a.loadRecentCmd(false)
	}

	var cmd tea.Cmd
	switch a.civFocus {
	case 0:
		a.civWindowIn, cmd = a.civWindowIn.Update(m)
	case 1:
		a.civTenantIn, cmd = a.civTenantIn.Update(m)
	case 2:
		a.civScopeIn, cmd = a.civScopeIn.Update(m)
	default:
		a.civNamespaceIn, cmd = a.civNamespaceIn.Update(m)
	}
	return a, cmd
}

func (a *App) syncCacheInvalFocus() {
	a.civWindowIn.Blur()
	a.civTenantIn.Blur()
	a.civScopeIn.Blur()
	a.civNamespaceIn.Blur()
	switch a.civFocus {
	case 0:
		a.civWindowIn.Focus()
	case 1:
		a.civTenantIn.Focus()
	case 2:
		a.civScopeIn.Focus()
	default:
		a.civNamespaceIn.Focus()
	}
}

func (a *App) applyFeedFilters() {
	a.feed.Window = strings.TrimSpace(a.civWindowIn.Value())
	a.feed.TenantID = strings.TrimSpace(a.civTenantIn.Value())
	a.feed.Scope = strings.TrimSpace(a.civScopeIn.Value())
	a.feed.Namespace = strings.TrimSpace(a.civNamespaceIn.Value())
}

func (a *App) handleTokensKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.Type {
	case tea.KeyEsc:
		a.view = viewHome
		return a, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(a.tokenInput.Value())
		if value == "" {
			a.tokenMessage = "请输入 Token"
			return a, nil
		}
		if err := a.adminTok.Set(value); err != nil {
			a.tokenMessage = "保存失败: " + err.Error()
			return a, nil
		}
		a.tokenMessage = "Token 已保存，可开始调用 API"
		return a, nil
	case tea.KeyCtrlX:
		if err := a.adminTok.Clear(); err != nil {
			a.tokenMessage = "清除失败: " + err.Error()
			return a, nil
		}
		a.tokenInput.SetValue("")
		a.tokenMessage = "Token 已清除"
		return a, nil
	case tea.KeyCtrlV:
		if a.tokenInput.EchoMode == textinput.EchoNormal {
			a.tokenInput.EchoMode = textinput.EchoPassword
		} else {
			a.tokenInput.EchoMode = textinput.EchoNormal
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.tokenInput, cmd = a.tokenInput.Update(m)
	return a, cmd
}

// renderers

func (a *App) renderHome() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("BlueCone Console") + "\n\n")
	b.WriteString("  [1] 商家入驻向导\n")
	b.WriteString("  [2] Outbox 投递记录\n")
	b.WriteString("  [3] 定时任务\n")
	b.WriteString("  [4] 配置中心\n")
	b.WriteString("  [5] 测试通知\n")
	b.WriteString("  [6] 缓存失效事件\n")
	b.WriteString("  [7] Token 设置\n\n")
	session := "无"
	if a.flow.SessionToken() != "" {
		session = "进行中"
	}
	adminTok := "未配置"
	if a.adminTok.Get() != "" {
		adminTok = "已配置"
	}
	b.WriteString(fmt.Sprintf("入驻会话: %s    Admin Token: %s\n\n", session, adminTok))
	b.WriteString(helpStyle.Render("[q] 退出"))
	return b.String()
}

func (a *App) renderOutbox() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Outbox 投递记录") + "\n\n")
	switch {
	case a.outboxLoading:
		b.WriteString(a.spin.View() + " 加载中...\n")
	case len(a.outbox) == 0:
		b.WriteString("(暂无记录)\n")
	default:
		for i, rec := range a.outbox {
			marker := "  "
			if i == a.outboxCursor {
				marker = cursorStyle.Render("> ")
			}
			status := rec.Status
			if strings.Contains(status, "FAIL") || strings.Contains(status, "ERROR") {
				status = errorStyle.Render(status)
			} else if strings.Contains(status, "SUCCESS") {
				status = okStyle.Render(status)
			}
			line := fmt.Sprintf("%s%-20s %-28s %-10s retry=%d %s", marker, rec.ID, rec.EventType, status, rec.RetryCount, rec.CreatedAt)
			if rec.ID == a.retryingID {
				line += "  " + a.spin.View() + " 重试中"
			}
			b.WriteString(line + "\n")
		}
	}
	if a.outboxErr != "" {
		b.WriteString("\n" + errorStyle.Render(a.outboxErr) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[l] 刷新  [r] 重试所选  [↑/↓] 选择  [esc] 返回"))
	return b.String()
}

func (a *App) renderScheduler() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("定时任务") + "\n\n")
	switch {
	case a.jobsLoading:
		b.WriteString(a.spin.View() + " 加载中...\n")
	case len(a.jobs) == 0:
		b.WriteString("(暂无任务)\n")
	default:
		for i, job := range a.jobs {
			marker := "  "
			if i == a.jobCursor {
				marker = cursorStyle.Render("> ")
			}
			line := fmt.Sprintf("%s%-24s %-16s %-10s last=%s next=%s", marker, job.Name, job.Cron, job.Status, job.LastRunAt, job.NextRunAt)
			if job.ID == a.triggeringID {
				line += "  " + a.spin.View() + " 触发中"
			}
			b.WriteString(line + "\n")
		}
	}
	if a.jobsNote != "" {
		b.WriteString("\n" + okStyle.Render(a.jobsNote) + "\n")
	}
	if a.jobsErr != "" {
		b.WriteString("\n" + errorStyle.Render(a.jobsErr) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[l] 刷新  [t] 触发所选  [↑/↓] 选择  [esc] 返回"))
	return b.String()
}

func (a *App) renderConfig() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("配置中心") + "\n\n")
	b.WriteString(fmt.Sprintf("tenantId: %s   env: %s   过滤: %s\n\n",
		a.cfgTenantIn.View(), a.cfgEnvIn.View(), a.cfgQueryIn.View()))

	if a.propsLoading {
		b.WriteString(a.spin.View() + " 加载中...\n")
	} else {
		filtered := ops.FilterProperties(a.props, a.cfgQueryIn.Value())
		if len(filtered) == 0 {
			b.WriteString("(无配置项)\n")
		}
		for _, item := range filtered {
			b.WriteString(fmt.Sprintf("  %-44s = %s\n", item.Key, item.Value))
		}
	}
	if a.propsErr != "" {
		b.WriteString("\n" + errorStyle.Render(a.propsErr) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[tab] 切换输入  [enter] 查询  [esc] 返回"))
	return b.String()
}

func (a *App) renderNotify() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("测试通知") + "\n\n")
	b.WriteString(a.notifyForm.view())
	b.WriteString(fmt.Sprintf("  %-28s %s\n", "Priority", a.notifyPrio))
	if a.notifyLoading {
		b.WriteString("\n" + a.spin.View() + " 发送中...\n")
	}
	if a.notifyMsg != "" {
		b.WriteString("\n" + okStyle.Render(a.notifyMsg) + "\n")
	}
	if a.notifyErr != "" {
		b.WriteString("\n" + errorStyle.Render(a.notifyErr) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[tab] 切换  [ctrl+p] 优先级  [enter] 发送  [ctrl+r] 重置  [esc] 返回"))
	return b.String()
}

func (a *App) renderCacheInval() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("缓存失效事件") + "\n\n")
	b.WriteString(fmt.Sprintf("window: %s  tenantId: %s  scope: %s  namespace: %s\n\n",
		a.civWindowIn.View(), a.civTenantIn.View(), a.civScopeIn.View(), a.civNamespaceIn.View()))

	b.WriteString(subtitleStyle.Render("统计") + "\n")
	switch {
	case a.summaryLoading:
		b.WriteString(a.spin.View() + " 统计加载中...\n")
	case a.summaryErr != "":
		b.WriteString(errorStyle.Render(a.summaryErr) + "\n")
	case a.summary == nil:
		b.WriteString("(按 enter 加载)\n")
	default:
		b.WriteString(fmt.Sprintf("总量 %d   风暴 %d\n", a.summary.Total, len(a.summary.Storms)))
		for _, st := range a.summary.ScopeStats {
			b.WriteString(fmt.Sprintf("  scope %-16s %d\n", st.Scope, st.Count))
		}
		for _, storm := range a.summary.Storms {
			b.WriteString(stormStyle.Render(fmt.Sprintf("  STORM %s/%s/%s %d/min (阈值 %d)",
				storm.TenantID, storm.Scope, storm.Namespace, storm.CountPerMinute, storm.ThresholdPerMinute)) + "\n")
		}
	}

	b.WriteString("\n" + subtitleStyle.Render("最近事件") + "\n")
	items := a.feed.Items()
	switch {
	case a.recentLoading && len(items) == 0:
		b.WriteString(a.spin.View() + " 事件加载中...\n")
	case len(items) == 0:
		b.WriteString("(按 enter 加载)\n")
	default:
		for i, ev := range items {
			marker := "  "
			if i == a.recentCursor {
				marker = cursorStyle.Render("> ")
			}
			badge := ""
			if ev.Storm() {
				badge = " " + stormStyle.Render("[STORM]")
			}
			b.WriteString(fmt.Sprintf("%s%-20s %-10s %-14s %-18s %4d/min%s\n",
				marker, ev.OccurredAt, ev.TenantID, ev.Scope, ev.Namespace, ev.CountPerMinute, badge))
		}
		if a.recentLoading {
			b.WriteString(a.spin.View() + " 加载更多...\n")
		} else if a.feed.Exhausted() {
			b.WriteString(helpStyle.Render("(已加载全部)") + "\n")
		}
	}
	if a.recentErr != "" {
		b.WriteString(errorStyle.Render(a.recentErr) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[tab] 筛选项  [enter] 刷新  [ctrl+n] 加载更多  [↑/↓] 选择  [esc] 返回"))
	return b.String()
}

func (a *App) renderTokens() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Token 设置") + "\n\n")
	b.WriteString("Admin Bearer Token:\n  " + a.tokenInput.View() + "\n")
	session := "无"
	if a.flow.SessionToken() != "" {
		session = "进行中（在入驻结果页可重新开始）"
	}
	b.WriteString("\n入驻会话: " + session + "\n")
	if a.tokenMessage != "" {
		b.WriteString("\n" + okStyle.Render(a.tokenMessage) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("[enter] 保存  [ctrl+x] 清除  [ctrl+v] 显示/隐藏  [esc] 返回"))
	return b.String()
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muzhenpeng-1998/bluecone-console/internal/config"
	"github.com/muzhenpeng-1998/bluecone-console/internal/gateway"
	"github.com/muzhenpeng-1998/bluecone-console/internal/onboarding"
	"github.com/muzhenpeng-1998/bluecone-console/internal/ops"
	"github.com/muzhenpeng-1998/bluecone-console/internal/tokenstore"
	"github.com/muzhenpeng-1998/bluecone-console/internal/tui"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tokenDir := cfg.Storage.Dir
	if tokenDir == "" {
		tokenDir, err = tokenstore.DefaultDir()
		if err != nil {
			log.Fatalf("resolve token dir: %v", err)
		}
	}

	// Two stores, two keys. The session token rides in onboarding request
	// bodies and query strings; the admin token is the Authorization bearer.
	sessionTok, err := tokenstore.NewFileStore(tokenDir, "session_token")
	if err != nil {
		log.Fatalf("session token store: %v", err)
	}
	adminTok, err := tokenstore.NewFileStore(tokenDir, "admin_token")
	if err != nil {
		log.Fatalf("admin token store: %v", err)
	}

	timeout := time.Duration(cfg.API.TimeoutSeconds) * time.Second
	httpc := &http.Client{Timeout: timeout}

	onboardClient := gateway.New(cfg.API.BaseURL, nil).WithHTTPClient(httpc)
	opsClient := gateway.New(cfg.API.OpsBaseURL, adminTok).WithHTTPClient(httpc)

	flow := onboarding.NewFlow(onboardClient, sessionTok)
	admin := ops.NewAdminService(opsClient)
	cache := ops.NewCacheInvalService(opsClient)
	feed := ops.NewFeed(opsClient)

	p := tea.NewProgram(
		tui.New(ctx, cfg, flow, admin, cache, feed, adminTok),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/chromenode/internal/api/models"
)

func (s *Server) registerBrowserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-browser",
		Method:      http.MethodGet,
		Path:        "/api/browser",
		Summary:     "Browser Status",
		Description: "Supervisor state, process and workspace of the browser, with a fresh port probe",
		Tags:        []string{"browser"},
		Security:    withAuth(),
		Errors:      []int{401, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.BrowserResponse, error) {
		data, err := s.browserData(ctx)
		if err != nil {
			return nil, err
		}
		return &models.BrowserResponse{Body: data}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-browser-targets",
		Method:      http.MethodGet,
		Path:        "/api/browser/targets",
		Summary:     "List Targets",
		Description: "List page targets over the remote debugging protocol",
		Tags:        []string{"browser"},
		Security:    withAuth(),
		Errors:      []int{401, 502, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.TargetsResponse, error) {
		if s.browser == nil || s.browser.Current() == nil {
			return nil, huma.Error503ServiceUnavailable("browser not running")
		}
		targets, err := s.browser.Targets(ctx)
		if err != nil {
			return nil, huma.Error502BadGateway("failed to list targets", err)
		}
		return &models.TargetsResponse{
			Body: models.TargetsData{Targets: targets, Count: len(targets)},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "relaunch-browser",
		Method:      http.MethodPost,
		Path:        "/api/browser/relaunch",
		Summary:     "Relaunch Browser",
		Description: "Kill the browser, remove its workspace and launch a fresh one with the current configuration",
		Tags:        []string{"browser"},
		Security:    withAuth(),
		Errors:      []int{401, 500, 503},
	}, func(ctx context.Context, _ *struct{}) (*models.RelaunchResponse, error) {
		if s.browser == nil {
			return nil, huma.Error503ServiceUnavailable("browser not configured")
		}
		// A client disconnect must not abort a relaunch half way.
		if err := s.browser.Restart(context.WithoutCancel(ctx)); err != nil {
			return nil, huma.Error500InternalServerError("relaunch failed", err)
		}
		data, err := s.browserData(ctx)
		if err != nil {
			return nil, err
		}
		return &models.RelaunchResponse{Body: data}, nil
	})
}

func (s *Server) browserData(ctx context.Context) (models.BrowserData, error) {
	if s.browser == nil {
		return models.BrowserData{}, huma.Error503ServiceUnavailable("browser not configured")
	}
	sup := s.browser.Current()
	if sup == nil {
		return models.BrowserData{}, huma.Error503ServiceUnavailable("browser not running")
	}
	return models.BrowserData{
		Info:      sup.Info(),
		Mode:      string(s.browser.Mode()),
		Reachable: sup.Alive(ctx),
	}, nil
}

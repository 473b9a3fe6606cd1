package models

import (
	"github.com/smazurov/chromenode/internal/devtools"
	"github.com/smazurov/chromenode/internal/logging"
	"github.com/smazurov/chromenode/internal/supervisor"
	"github.com/smazurov/chromenode/internal/version"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionResponse struct {
	Body version.Info
}

// Browser models
type BrowserData struct {
	supervisor.Info
	Mode      string `json:"mode" example:"headless" doc:"Launch mode"`
	Reachable bool   `json:"reachable" example:"true" doc:"Whether the debugging port accepted a connection just now"`
}

type BrowserResponse struct {
	Body BrowserData
}

type TargetsData struct {
	Targets []devtools.Target `json:"targets" doc:"Page targets"`
	Count   int               `json:"count" example:"1" doc:"Number of targets"`
}

type TargetsResponse struct {
	Body TargetsData
}

type RelaunchResponse struct {
	Body BrowserData
}

// Log models
type LogsInput struct {
	Limit int `query:"limit" default:"100" minimum:"1" maximum:"500" doc:"Most recent entries to return"`
}

type LogsData struct {
	Entries []logging.Entry `json:"entries" doc:"Log entries, oldest first"`
	Count   int             `json:"count" example:"100" doc:"Number of entries"`
}

type LogsResponse struct {
	Body LogsData
}

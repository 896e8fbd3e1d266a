package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"orsim/internal/caselog"
	"orsim/internal/config"
	"orsim/internal/metrics"
	"orsim/internal/simulation"
)

// Server holds the state for the MCP server.
type Server struct {
	history  *caselog.History
	scenario config.Scenario
	cfg      *config.AppConfig
	rec      *metrics.Recorder
	version  string
}

// NewServer creates a new MCP server over a loaded case history. The scenario
// supplies defaults for arguments a tool call leaves out.
func NewServer(h *caselog.History, scenario config.Scenario, cfg *config.AppConfig, rec *metrics.Recorder, version string) *Server {
	return &Server{
		history:  h,
		scenario: scenario,
		cfg:      cfg,
		rec:      rec,
		version:  version,
	}
}

// Serve runs the MCP session over stdio until the client disconnects or ctx ends.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Int("cases", s.history.Len()).Msg("Starting MCP server on stdio")
	return s.Build().Run(ctx, &sdk.StdioTransport{})
}

// Build registers every tool on a new protocol server.
func (s *Server) Build() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: "orsim", Version: s.version}, nil)

	sdk.AddTool(server, planTool(), s.handlePlanSchedule)
	sdk.AddTool(server, simulateTool(), s.handleSimulateSchedule)
	sdk.AddTool(server, replayTool(), s.handleReplayHistoricalDay)

	return server
}

// engine builds a run engine for one tool call. A zero seed falls back to the
// scenario seed, and then to a clock-derived one.
func (s *Server) engine(seed int64) *simulation.Engine {
	if seed == 0 {
		seed = s.scenario.Seed
	}
	return simulation.NewEngine(s.history, simulation.Options{
		Seed:        seed,
		Workers:     s.scenario.Workers,
		AnchorYear:  s.scenario.AnchorYear,
		IgnoreRooms: s.scenario.IgnoreRooms,
		Recorder:    s.rec,
	})
}

package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/screenmask/internal/rules"
)

func (s *Server) handleMaskStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ MaskStatusInput) (*mcpsdk.CallToolResult, MaskStatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		// A stopped daemon is a valid status, not a tool failure.
		return nil, MaskStatusOutput{Error: err.Error()}, nil
	}
	return nil, MaskStatusOutput{
		DaemonRunning:     st.DaemonRunning,
		State:             st.State,
		Suspended:         st.Suspended,
		LiveSurfaces:      st.LiveSurfaces,
		LiveRuleIDs:       st.LiveRuleIDs,
		PermissionGranted: st.PermissionGranted,
		LastOutcome:       st.LastOutcome,
	}, nil
}

func (s *Server) handleActivateMasks(_ context.Context, _ *mcpsdk.CallToolRequest, _ ActivateMasksInput) (*mcpsdk.CallToolResult, ActivateMasksOutput, error) {
	data, err := s.daemon.Activate()
	if err != nil {
		return nil, ActivateMasksOutput{}, fmt.Errorf("activate masks: %w", err)
	}
	s.logger.Info("masks activated via mcp", "created", data.Outcome.SurfacesCreated)
	return nil, ActivateMasksOutput{
		Outcome: data.Outcome,
		Summary: data.Outcome.String(),
	}, nil
}

func (s *Server) handleDeactivateMasks(_ context.Context, _ *mcpsdk.CallToolRequest, _ DeactivateMasksInput) (*mcpsdk.CallToolResult, DeactivateMasksOutput, error) {
	n, err := s.daemon.Deactivate()
	if err != nil {
		return nil, DeactivateMasksOutput{}, fmt.Errorf("deactivate masks: %w", err)
	}
	s.logger.Info("masks deactivated via mcp", "cleared", n)
	return nil, DeactivateMasksOutput{Cleared: n}, nil
}

func (s *Server) handleListRules(_ context.Context, _ *mcpsdk.CallToolRequest, args ListRulesInput) (*mcpsdk.CallToolResult, ListRulesOutput, error) {
	rs, err := s.store.Load()
	if err != nil {
		return nil, ListRulesOutput{}, err
	}
	if args.EnabledOnly {
		rs = rules.Enabled(rs)
	}

	infos := make([]RuleInfo, 0, len(rs))
	for _, r := range rs {
		w, h := r.Size()
		_, drawable := r.Geometry()
		infos = append(infos, RuleInfo{
			ID:       r.ID,
			Left:     r.Left,
			Top:      r.Top,
			Right:    r.Right,
			Bottom:   r.Bottom,
			Color:    r.Color.String(),
			Enabled:  r.Enabled,
			Width:    w,
			Height:   h,
			Drawable: drawable && r.Enabled,
		})
	}
	return nil, ListRulesOutput{
		RulesFile: s.store.Path(),
		Rules:     infos,
	}, nil
}

func (s *Server) handleSetRuleEnabled(_ context.Context, _ *mcpsdk.CallToolRequest, args SetRuleEnabledInput) (*mcpsdk.CallToolResult, SetRuleEnabledOutput, error) {
	if args.ID == "" {
		return nil, SetRuleEnabledOutput{}, fmt.Errorf("id is required")
	}
	if err := s.store.SetEnabled(args.ID, args.Enabled); err != nil {
		return nil, SetRuleEnabledOutput{}, err
	}
	s.logger.Info("rule updated via mcp", "rule", args.ID, "enabled", args.Enabled)

	out := SetRuleEnabledOutput{ID: args.ID, Enabled: args.Enabled}
	if !args.Apply {
		return nil, out, nil
	}
	data, err := s.daemon.Reload()
	if err != nil {
		return nil, out, fmt.Errorf("rule saved but re-apply failed: %w", err)
	}
	out.Applied = !data.Suspended
	if out.Applied {
		outcome := data.Outcome
		out.Outcome = &outcome
	}
	return nil, out, nil
}

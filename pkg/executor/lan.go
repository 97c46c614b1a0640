package executor

import (
	"context"
	"time"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/engine"
)

// logCollectionInterval is how often session logs are pulled while a
// launch-and-wait loop runs.
const logCollectionInterval = 300 * time.Second

// startSessionFields are the payload fields forwarded to the session
// start call; the rest of the entity payload drives the wait loop.
var startSessionFields = []string{
	"primaryDeviceManagmentIPAddress",
	"peerDeviceManagmentIPAddress",
	"primaryDeviceInterfaceNames",
	"discoveredDeviceSiteNameHierarchy",
	"ipPools",
	"multicastEnabled",
	"hostNamePrefix",
	"hostNameFileId",
	"isisDomainPwd",
	"redistributeIsisToBgp",
	"discoveryLevel",
	"discoveryTimeout",
	"discoveryDevices",
}

func (e *Executor) applyLanSession(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	if action.Type == engine.ActionDelete {
		return e.stopSession(ctx, action, result)
	}

	payload := map[string]any{}
	for _, field := range startSessionFields {
		if value := action.Entity.Field(field); value != nil {
			payload[field] = value
		}
	}

	future, err := e.gateway.StartSession(ctx, payload)
	if err != nil {
		return result, err
	}
	result.TaskID = future.TaskID

	launchAndWait, _ := action.Entity.BoolField("launchAndWait")
	if !launchAndWait {
		// Fire and forget: one status read catches an immediate
		// rejection, then discovery runs in the background.
		status, err := e.gateway.TaskStatus(ctx, future.TaskID)
		if err != nil {
			return result, err
		}
		if status.IsError {
			return result, engine.Errorf(engine.FailTaskFailed, "%s", status.ErrorMessage()).
				WithDetail("task_id", future.TaskID).WithEntity(action.Entity.NaturalKey)
		}
		result.Outcome = engine.OutcomeCreated
		result.Message = "session launched"
		return result, nil
	}

	if err := e.waitForSession(ctx, action.Entity, future); err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeCreated
	result.Message = "session completed"
	return result, nil
}

// waitForSession drives a launch-and-wait loop: the discovery task and
// the session status are both polled, and whichever terminates first
// ends the wait. Session logs are collected periodically; pending PnP
// devices named by the playbook are authorized as they appear.
func (e *Executor) waitForSession(ctx context.Context, entity engine.Entity,
	future engine.TaskFuture) error {

	pnpAuthorization, _ := entity.BoolField("pnpAuthorization")
	serials := stringList(entity.Field("deviceSerialNumberAuthorized"))
	seed := entity.NaturalKey

	deadline := time.Now().Add(e.opts.LanTaskTimeout)
	var lastLogPull time.Time
	sessionID := ""

	if e.metrics != nil {
		e.metrics.SetActiveSessions(1)
		defer e.metrics.SetActiveSessions(0)
	}

	for {
		status, err := e.gateway.TaskStatus(ctx, future.TaskID)
		if err != nil {
			return err
		}
		if status.IsError {
			return engine.Errorf(engine.FailTaskFailed, "%s", status.ErrorMessage()).
				WithDetail("task_id", future.TaskID).WithEntity(seed)
		}
		if catalyst.TaskDone(status, future) {
			return nil
		}

		if sessionID == "" {
			sessionID, err = e.findSessionID(ctx, seed)
			if err != nil {
				return err
			}
		}
		if sessionID != "" {
			session, err := e.gateway.SessionStatus(ctx, sessionID)
			if err != nil {
				return err
			}
			// A session that finished or vanished terminates the wait even
			// while the task still reports progress.
			if session == nil || session.Status == "COMPLETED" {
				return nil
			}

			if time.Since(lastLogPull) >= logCollectionInterval {
				e.collectLogs(ctx, sessionID)
				lastLogPull = time.Now()
			}
		}

		if pnpAuthorization && len(serials) > 0 {
			if err := e.authorizeSerials(ctx, serials); err != nil {
				return err
			}
		}

		if time.Now().After(deadline) {
			return engine.Errorf(engine.FailTaskTimeout,
				"LAN automation session for seed %s did not finish within %s",
				seed, e.opts.LanTaskTimeout).
				WithDetail("task_id", future.TaskID).WithEntity(seed)
		}
		select {
		case <-ctx.Done():
			return engine.NewError(engine.FailTaskTimeout, "session wait cancelled", ctx.Err()).
				WithEntity(seed)
		case <-time.After(e.opts.LanPollInterval):
		}
	}
}

func (e *Executor) findSessionID(ctx context.Context, seed string) (string, error) {
	ids, err := e.gateway.ActiveSessionIDs(ctx)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		session, err := e.gateway.SessionStatus(ctx, id)
		if err != nil {
			return "", err
		}
		if session != nil && session.PrimaryDeviceManagmentIPAddress == seed {
			return id, nil
		}
	}
	return "", nil
}

func (e *Executor) collectLogs(ctx context.Context, sessionID string) {
	entries, err := e.gateway.SessionLogs(ctx, sessionID)
	if err != nil {
		// Log collection is best effort; discovery continues regardless.
		e.logger.Warn().Err(err).Str("session", sessionID).Msg("session log pull failed")
		return
	}
	for _, entry := range entries {
		e.logger.Info().
			Str("session", sessionID).
			Str("device", entry.DeviceID).
			Str("timestamp", entry.Timestamp).
			Msg(entry.Entry)
	}
}

// authorizeSerials authorizes any of the given serials sitting in the
// Pending Authorization PnP state.
func (e *Executor) authorizeSerials(ctx context.Context, serials []string) error {
	if len(serials) == 0 {
		return nil
	}
	devices, err := e.gateway.GetPnpDevices(ctx, serials)
	if err != nil {
		return err
	}
	var pending []string
	for _, device := range devices {
		if device.State == catalyst.PnpStatePendingAuthorization {
			pending = append(pending, device.ID)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	if err := e.gateway.AuthorizeDevices(ctx, pending); err != nil {
		return err
	}
	e.logger.Info().Int("count", len(pending)).Msg("authorized pending PnP devices")
	return nil
}

// stopSession stops an active session and waits for the controller to
// drain it. The stop task can report success while the session still
// tears down, so the active session list, not the task, decides when
// the drain is over.
func (e *Executor) stopSession(ctx context.Context, action engine.Action,
	result engine.ActionResult) (engine.ActionResult, error) {

	future, err := e.gateway.StopSession(ctx, action.PreviousID)
	if err != nil {
		return result, err
	}
	// One status read catches an immediately rejected stop.
	status, err := e.gateway.TaskStatus(ctx, future.TaskID)
	if err != nil {
		return result, err
	}
	if status.IsError {
		return result, engine.Errorf(engine.FailTaskFailed, "%s", status.ErrorMessage()).
			WithDetail("task_id", future.TaskID).WithEntity(action.Entity.NaturalKey)
	}

	start := time.Now()
	err = e.awaitSessionDrain(ctx, action.PreviousID)
	if e.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = string(engine.KindOf(err))
		}
		e.metrics.ObserveTaskWait(outcome, time.Since(start))
	}
	if err != nil {
		return result, err
	}
	result.Outcome = engine.OutcomeDeleted
	result.TaskID = future.TaskID
	result.Message = "session stopped"
	return result, nil
}

// awaitSessionDrain polls the active session list until the stopped
// session disappears from it.
func (e *Executor) awaitSessionDrain(ctx context.Context, sessionID string) error {
	deadline := time.Now().Add(e.opts.StopDrainTimeout)
	for {
		ids, err := e.gateway.ActiveSessionIDs(ctx)
		if err != nil {
			return err
		}
		active := false
		for _, id := range ids {
			if id == sessionID {
				active = true
				break
			}
		}
		if !active {
			return nil
		}
		if time.Now().After(deadline) {
			return engine.Errorf(engine.FailTaskTimeout,
				"LAN automation session %s did not drain within %s",
				sessionID, e.opts.StopDrainTimeout).
				WithDetail("session_id", sessionID)
		}
		select {
		case <-ctx.Done():
			return engine.NewError(engine.FailTaskTimeout, "session drain wait cancelled", ctx.Err())
		case <-time.After(e.opts.LanPollInterval):
		}
	}
}

func stringList(value any) []string {
	raw, _ := value.([]any)
	out := make([]string, 0, len(raw))
	for _, elem := range raw {
		if s, ok := elem.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

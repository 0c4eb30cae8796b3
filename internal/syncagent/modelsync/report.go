package modelsync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
)

// reports maps failure kinds to the message box shown to the user.
// AuthRejected is absent: the connection manager already reports it.
var reports = map[core.Kind]core.MessageBox{
	core.NotConnected: {
		Title:   "Not Connected",
		Message: "You are not currently connected to Synthetic Selection. Please set your token with `ss-sync token` first.",
		Icon:    core.IconWarning,
	},
	core.NoProject: {
		Title:   "No Project",
		Message: "There is no open project to synchronize!",
		Icon:    core.IconWarning,
	},
	core.SyncInProgress: {
		Title:   "Sync In Progress",
		Message: "A model is already being synchronized. Wait for Synthetic Selection to reply before syncing again.",
		Icon:    core.IconWarning,
	},
	core.ExportEmpty: {
		Title:   "Export Failed",
		Message: "Could not export GLB data: %s",
		Icon:    core.IconCancel,
	},
	core.ExportFailed: {
		Title:   "Export Failed",
		Message: "Could not export GLB data: %s",
		Icon:    core.IconCancel,
	},
	core.EncodingFailed: {
		Title:   "Export Failed",
		Message: "Could not encode GLB data: %s",
		Icon:    core.IconCancel,
	},
	core.TransportError: {
		Title:   "Sync Failed",
		Message: "Could not send the model to Synthetic Selection: %s",
		Icon:    core.IconCancel,
	},
	core.Fatal: {
		Title:   "Sync Failed",
		Message: "A fatal error occurred: %s",
		Icon:    core.IconCancel,
	},
	core.EngineRejected: {
		Title:   "SS Engine Error",
		Message: "Synthetic Selection rejected the payload:\n\n%s",
		Icon:    core.IconError,
	},
	core.SyncTimeout: {
		Title:   "Sync Timed Out",
		Message: "Synthetic Selection did not reply within %s.",
		Icon:    core.IconWarning,
	},
}

// reportFor builds the message box for err. ok is false when err must not be
// shown to the user.
func reportFor(err error) (core.MessageBox, bool) {
	kind := core.KindOf(err)
	if kind == core.AuthRejected {
		return core.MessageBox{}, false
	}

	box, found := reports[kind]
	if !found {
		box = reports[core.Fatal]
	}
	if strings.Contains(box.Message, "%s") {
		box.Message = fmt.Sprintf(box.Message, describe(err))
	}
	return box, true
}

// describe returns the user-facing detail of err.
func describe(err error) string {
	var se *core.Error
	if !errors.As(err, &se) {
		return err.Error()
	}
	switch {
	case se.Detail != "" && se.Err != nil:
		return fmt.Sprintf("%s: %v", se.Detail, se.Err)
	case se.Detail != "":
		return se.Detail
	case se.Err != nil:
		return se.Err.Error()
	default:
		return string(se.Kind)
	}
}

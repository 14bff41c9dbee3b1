// OGA CRM - Partner School Relationship Management
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

// Notifier receives backup lifecycle events. Delivery (email, webhook) is
// not implemented yet; the hook exists so delivery can be added without
// touching the orchestration code.
type Notifier interface {
	BackupCompleted(artifact *Artifact)
	BackupFailed(err error)
	RestoreCompleted(result *RestoreResult)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) BackupCompleted(*Artifact)       {}
func (NopNotifier) BackupFailed(error)              {}
func (NopNotifier) RestoreCompleted(*RestoreResult) {}

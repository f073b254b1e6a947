package syncer

import "fmt"

// SyncError reports the adaptor call that aborted a synchronization pass.
// Name is empty when listing the adaptor's entities failed.
type SyncError struct {
	Adaptor string
	Kind    EntityKind
	Name    string
	Op      string
	Err     error
}

func (e *SyncError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("adaptor %s: %s %ss: %v", e.Adaptor, e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("adaptor %s: %s %s %s: %v", e.Adaptor, e.Op, e.Kind, e.Name, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

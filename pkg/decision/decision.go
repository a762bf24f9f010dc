// Package decision implements the pure per-file upload decision: given the
// local file's facts and whatever the remote reported, decide whether to
// skip, upload, or upload and then delete the local copy.
package decision

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/util"
)

// Action is the outcome of evaluating a single file.
type Action int

const (
	Skip Action = iota
	Upload
	UploadAndDelete
)

var actionToString = map[Action]string{
	Skip:            "skip",
	Upload:          "upload",
	UploadAndDelete: "upload_and_delete",
}

var stringToAction map[string]Action

func init() {
	stringToAction = util.InvertMap(actionToString)
}

// String renders the Action for logs and diagnostics.
func (a Action) String() string {
	if s, ok := actionToString[a]; ok {
		return s
	}
	return fmt.Sprintf("unknown_action(%d)", a)
}

// ParseAction parses the string form of an Action.
func ParseAction(s string) (Action, error) {
	if a, ok := stringToAction[s]; ok {
		return a, nil
	}
	return Skip, fmt.Errorf("invalid action: %q", s)
}

// MarshalJSON implements json.Marshaler.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Action) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("Action should be a string, got %s", data)
	}
	parsed, err := ParseAction(str)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// CompareMode selects how remote and local files are compared.
type CompareMode int

const (
	SizeMtime CompareMode = iota
	SizeOnly
)

var compareModeToString = map[CompareMode]string{
	SizeMtime: "size-mtime",
	SizeOnly:  "size-only",
}

var stringToCompareMode map[string]CompareMode

func init() {
	stringToCompareMode = util.InvertMap(compareModeToString)
}

func (m CompareMode) String() string {
	if s, ok := compareModeToString[m]; ok {
		return s
	}
	return fmt.Sprintf("unknown_compare_mode(%d)", m)
}

// ParseCompareMode parses the flag/config string form of a CompareMode.
func ParseCompareMode(s string) (CompareMode, error) {
	if m, ok := stringToCompareMode[strings.ToLower(s)]; ok {
		return m, nil
	}
	return SizeMtime, fmt.Errorf("invalid compare mode: %q. Must be 'size-mtime' or 'size-only'", s)
}

func (m CompareMode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *CompareMode) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("CompareMode should be a string, got %s", data)
	}
	parsed, err := ParseCompareMode(str)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// mtimeTolerance is the window within which a local file is not considered
// newer than an otherwise size-matching remote copy.
const mtimeTolerance = 2 * time.Second

// LocalFileInfo captures the facts about a local file needed for the decision.
type LocalFileInfo struct {
	Path         string
	Size         uint64
	LastModified time.Time
	IsJPG        bool
}

// RemoteItemInfo captures whatever PROPFIND reported about the remote item.
// A nil pointer field means the remote did not supply that fact.
type RemoteItemInfo struct {
	Exists       bool
	IsDir        bool
	Size         *uint64
	LastModified *time.Time
	ETag         string
}

// FileDecision is the outcome of evaluating one file.
type FileDecision struct {
	Action Action
	Reason string
}

// IsDifferent reports whether the local file should be considered different
// from the remote copy under the given comparison mode.
func IsDifferent(local LocalFileInfo, remote RemoteItemInfo, mode CompareMode) bool {
	if !remote.Exists {
		return true
	}
	if remote.Size == nil {
		return true
	}
	if *remote.Size != local.Size {
		return true
	}
	if mode == SizeOnly {
		return false
	}
	if remote.LastModified == nil {
		return true
	}
	if local.LastModified.After(remote.LastModified.Add(mtimeTolerance)) {
		return true
	}
	return false
}

// IsOlderThan24Hours reports whether the local file's modification time
// predates runStart by more than 24 hours.
func IsOlderThan24Hours(local LocalFileInfo, runStart time.Time) bool {
	return local.LastModified.Before(runStart.Add(-24 * time.Hour))
}

// DecideFileAction is the pure decision function. Equal inputs always
// produce equal outputs.
func DecideFileAction(local LocalFileInfo, remote RemoteItemInfo, mode CompareMode, runStart time.Time) FileDecision {
	if local.IsJPG {
		if remote.Exists {
			return FileDecision{Action: UploadAndDelete, Reason: "jpg overwrite"}
		}
		return FileDecision{Action: UploadAndDelete, Reason: "jpg upload"}
	}

	old := IsOlderThan24Hours(local, runStart)

	if !remote.Exists {
		if old {
			return FileDecision{Action: UploadAndDelete, Reason: "upload + delete (old)"}
		}
		return FileDecision{Action: Upload, Reason: "upload (missing)"}
	}

	if IsDifferent(local, remote, mode) {
		if old {
			return FileDecision{Action: UploadAndDelete, Reason: "upload + delete (old diff)"}
		}
		return FileDecision{Action: Upload, Reason: "upload (diff)"}
	}

	return FileDecision{Action: Skip, Reason: "skip (same)"}
}

package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codebundle/session/contracts"
	"codebundle/session/models"

	"github.com/gofrs/flock"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
)

// timeLayout is the generation timestamp format used in checkpoints and
// bundle headers.
const timeLayout = "2006-01-02T15:04:05"

// FileCheckpointStore persists session state as a JSON checkpoint written
// via temp-file-then-atomic-rename, so a crash mid-save never corrupts the
// previous checkpoint.
type FileCheckpointStore struct {
	Path   string
	Logger *zap.Logger

	// Now is the clock; tests substitute it.
	Now func() time.Time

	lock *flock.Flock
}

var _ contracts.ICheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates a store writing to path.
func NewFileCheckpointStore(path string, logger *zap.Logger) *FileCheckpointStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileCheckpointStore{
		Path:   path,
		Logger: logger,
		Now:    time.Now,
		lock:   flock.New(path + ".lock"),
	}
}

// AcquireLock refuses to share the checkpoint with a concurrent session.
func (st *FileCheckpointStore) AcquireLock() error {
	ok, err := st.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return errors.New("another codebundle session is already running against this state file")
	}
	return nil
}

// ReleaseLock releases the session lock; safe to call when never acquired.
func (st *FileCheckpointStore) ReleaseLock() {
	if err := st.lock.Unlock(); err != nil {
		st.Logger.Warn("failed to release session lock", zap.Error(err))
	}
}

// Fingerprint hashes the inventory and scan configuration a checkpoint was
// built against. It is a fast mismatch rejection, not a substitute for the
// exact field comparison Load performs.
func Fingerprint(scanRoots []string, root string, files []string) string {
	var b strings.Builder
	for _, r := range scanRoots {
		b.WriteString(r)
		b.WriteByte(0)
	}
	b.WriteString(root)
	b.WriteByte(0)
	for _, f := range files {
		b.WriteString(f)
		b.WriteByte(0)
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}

// Save serializes the full session state and writes it atomically. A save
// failure is fatal to the caller: progress that cannot be durably recorded
// must not be claimed.
func (st *FileCheckpointStore) Save(state *models.SessionState) error {
	cp := models.Checkpoint{
		GeneratedAt: st.Now().Format(timeLayout),
		SessionID:   state.SessionID,
		Fingerprint: Fingerprint(state.ScanRoots, state.Root, state.Files),
		ScanDirsAbs: state.ScanRoots,
		RelRoot:     state.Root,
		Files:       state.Files,
		Done:        state.Done,
		Cursor:      state.Cursor,
		PendingOnly: state.PendingOnly,
		Mode:        string(state.Mode),
		Contents:    state.Contents,
	}

	data, err := json.MarshalIndent(&cp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	if err := atomicWriteFile(st.Path, data); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}

	st.Logger.Debug("checkpoint saved",
		zap.String("sessionID", state.SessionID),
		zap.Int("done", state.DoneCount()),
		zap.Int("total", state.Len()))
	return nil
}

// Load restores the checkpoint matching the supplied inventory and scan
// roots exactly. Missing, corrupted, or mismatched checkpoints all yield
// nil — the session restarts fresh rather than crashing.
func (st *FileCheckpointStore) Load(scanRoots []string, root string, files []string) *models.SessionState {
	data, err := os.ReadFile(st.Path)
	if err != nil {
		return nil
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		st.Logger.Warn("checkpoint unreadable, starting fresh", zap.Error(err))
		return nil
	}

	if cp.Fingerprint != "" && cp.Fingerprint != Fingerprint(scanRoots, root, files) {
		return nil
	}
	if !stringSlicesEqual(cp.ScanDirsAbs, scanRoots) || cp.RelRoot != root || !stringSlicesEqual(cp.Files, files) {
		return nil
	}
	if len(cp.Done) != len(files) {
		st.Logger.Warn("checkpoint has wrong flag count, starting fresh",
			zap.Int("flags", len(cp.Done)), zap.Int("files", len(files)))
		return nil
	}
	mode := models.Mode(cp.Mode)
	if !mode.Valid() {
		st.Logger.Warn("checkpoint has unknown mode, starting fresh", zap.String("mode", cp.Mode))
		return nil
	}

	// The acquired-iff-content invariant must hold before the state is
	// trusted; a record that violates it is discarded wholesale.
	inInventory := make(map[string]int, len(files))
	for i, f := range files {
		inInventory[f] = i
	}
	for p := range cp.Contents {
		idx, known := inInventory[p]
		if !known || !cp.Done[idx] {
			st.Logger.Warn("checkpoint content/flag mismatch, starting fresh", zap.String("path", p))
			return nil
		}
	}
	for i, done := range cp.Done {
		if done {
			if _, has := cp.Contents[files[i]]; !has {
				st.Logger.Warn("checkpoint flag without content, starting fresh", zap.String("path", files[i]))
				return nil
			}
		}
	}

	cursor := cp.Cursor
	if cursor < models.NoCursor {
		cursor = models.NoCursor
	}
	if cursor >= len(files) {
		cursor = len(files) - 1
	}

	contents := cp.Contents
	if contents == nil {
		contents = make(map[string]string)
	}
	sessionID := cp.SessionID
	if sessionID == "" {
		sessionID = models.NewSessionState(nil, "", nil, mode).SessionID
	}

	return &models.SessionState{
		SessionID:   sessionID,
		ScanRoots:   scanRoots,
		Root:        root,
		Files:       files,
		Done:        cp.Done,
		Contents:    contents,
		Cursor:      cursor,
		PendingOnly: cp.PendingOnly,
		Mode:        mode,
	}
}

// Delete removes the checkpoint file if present.
func (st *FileCheckpointStore) Delete() error {
	if err := os.Remove(st.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether a checkpoint file is present on disk.
func (st *FileCheckpointStore) Exists() bool {
	_, err := os.Stat(st.Path)
	return err == nil
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// atomicWriteFile writes data to path via a temp file in the same
// directory followed by an atomic rename; the prior file stays valid until
// the new one is substituted.
func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

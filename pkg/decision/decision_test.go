package decision

import (
	"testing"
	"time"
)

func u64(n uint64) *uint64 { return &n }
func tp(t time.Time) *time.Time { return &t }

func TestJPGAlwaysUploadAndDelete(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "photo.jpg", Size: 100, LastModified: now, IsJPG: true}
	remote := RemoteItemInfo{Exists: true, Size: u64(100), LastModified: tp(now)}
	d := DecideFileAction(local, remote, SizeMtime, now)
	if d.Action != UploadAndDelete {
		t.Fatalf("expected UploadAndDelete, got %v", d.Action)
	}
	if d.Reason != "jpg overwrite" {
		t.Fatalf("expected jpg overwrite, got %q", d.Reason)
	}

	remoteAbsent := RemoteItemInfo{Exists: false}
	d2 := DecideFileAction(local, remoteAbsent, SizeMtime, now)
	if d2.Reason != "jpg upload" || d2.Action != UploadAndDelete {
		t.Fatalf("expected jpg upload/UploadAndDelete, got %v %q", d2.Action, d2.Reason)
	}
}

func TestFreshNonJpgMatchSkips(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "notes.txt", Size: 42, LastModified: now}
	remote := RemoteItemInfo{Exists: true, Size: u64(42), LastModified: tp(now.Add(-time.Second))}
	d := DecideFileAction(local, remote, SizeMtime, now)
	if d.Action != Skip {
		t.Fatalf("expected Skip, got %v (%s)", d.Action, d.Reason)
	}
}

func TestMissingRemoteRecentUploadsWithoutDelete(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "new.bin", Size: 10, LastModified: now}
	remote := RemoteItemInfo{Exists: false}
	d := DecideFileAction(local, remote, SizeMtime, now)
	if d.Action != Upload {
		t.Fatalf("expected Upload, got %v", d.Action)
	}
}

func TestMissingRemoteOldUploadsAndDeletes(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "old.bin", Size: 10, LastModified: now.Add(-48 * time.Hour)}
	remote := RemoteItemInfo{Exists: false}
	d := DecideFileAction(local, remote, SizeMtime, now)
	if d.Action != UploadAndDelete {
		t.Fatalf("expected UploadAndDelete, got %v", d.Action)
	}
}

func TestSizeMismatchForcesUpload(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "f.bin", Size: 100, LastModified: now}
	remote := RemoteItemInfo{Exists: true, Size: u64(99), LastModified: tp(now)}
	d := DecideFileAction(local, remote, SizeMtime, now)
	if d.Action != Upload {
		t.Fatalf("expected Upload for recent mismatch, got %v", d.Action)
	}

	localOld := LocalFileInfo{Path: "f.bin", Size: 100, LastModified: now.Add(-48 * time.Hour)}
	d2 := DecideFileAction(localOld, remote, SizeMtime, now)
	if d2.Action != UploadAndDelete {
		t.Fatalf("expected UploadAndDelete for old mismatch, got %v", d2.Action)
	}
}

func TestSizeOnlyModeIgnoresTimestamps(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "f.bin", Size: 100, LastModified: now}
	remote := RemoteItemInfo{Exists: true, Size: u64(100), LastModified: tp(now.Add(-365 * 24 * time.Hour))}
	if IsDifferent(local, remote, SizeOnly) {
		t.Fatal("SizeOnly mode should ignore timestamp difference when sizes match")
	}
}

func TestTwoSecondTolerance(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Size: 10, LastModified: now}
	remote := RemoteItemInfo{Exists: true, Size: u64(10), LastModified: tp(now.Add(-2 * time.Second))}
	if IsDifferent(local, remote, SizeMtime) {
		t.Fatal("expected within-tolerance match to be considered same")
	}
	remoteFar := RemoteItemInfo{Exists: true, Size: u64(10), LastModified: tp(now.Add(-3 * time.Second))}
	if !IsDifferent(local, remoteFar, SizeMtime) {
		t.Fatal("expected beyond-tolerance to be considered different")
	}
}

func TestDecideFileActionIsPure(t *testing.T) {
	now := time.Now()
	local := LocalFileInfo{Path: "a.bin", Size: 10, LastModified: now}
	remote := RemoteItemInfo{Exists: true, Size: u64(10), LastModified: tp(now)}
	d1 := DecideFileAction(local, remote, SizeMtime, now)
	d2 := DecideFileAction(local, remote, SizeMtime, now)
	if d1 != d2 {
		t.Fatalf("expected equal outputs for equal inputs: %v != %v", d1, d2)
	}
}

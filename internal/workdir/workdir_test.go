package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveAndCheck_AbsentPathReturnsAbsent(t *testing.T) {
	p := Policy{Enforce: true, AllowedWriteRoots: []string{"/tmp"}}
	got, err := p.ResolveAndCheck("")
	if err != nil || got != "" {
		t.Fatalf("expected absent/no error, got %q, %v", got, err)
	}
}

func TestResolveAndCheck_EnforcementOffOnlyChecksExistence(t *testing.T) {
	dir := t.TempDir()
	p := Policy{Enforce: false}
	got, err := p.ResolveAndCheck(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Error("expected a canonical path")
	}
}

func TestResolveAndCheck_EnforcementOffMissingDirErrors(t *testing.T) {
	p := Policy{Enforce: false}
	_, err := p.ResolveAndCheck(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveAndCheck_WithinAllowedRootSucceeds(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "workspace")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	p := Policy{Enforce: true, AllowedWriteRoots: []string{root}}
	got, err := p.ResolveAndCheck(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Error("expected a canonical path")
	}
}

func TestResolveAndCheck_OutsideAllowedRootRejected(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	p := Policy{Enforce: true, AllowedWriteRoots: []string{root}}
	_, err := p.ResolveAndCheck(outside)
	if err != ErrOutOfRoot {
		t.Fatalf("expected ErrOutOfRoot, got %v", err)
	}
}

func TestResolveAndCheck_SegmentWisePrefixNotRawString(t *testing.T) {
	root := t.TempDir()
	allowedSub := filepath.Join(root, "foo")
	siblingThatSharesPrefix := filepath.Join(root, "foobar")
	if err := os.MkdirAll(allowedSub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(siblingThatSharesPrefix, 0o755); err != nil {
		t.Fatal(err)
	}

	p := Policy{Enforce: true, AllowedWriteRoots: []string{allowedSub}}
	_, err := p.ResolveAndCheck(siblingThatSharesPrefix)
	if err != ErrOutOfRoot {
		t.Fatalf("expected ErrOutOfRoot for sibling dir with shared string prefix, got %v", err)
	}
}

func TestResolveAndCheck_TempPlaceholderExpansion(t *testing.T) {
	p := Policy{Enforce: true, AllowedWriteRoots: []string{"${TEMP}"}}
	dir := t.TempDir()
	got, err := p.ResolveAndCheck(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == "" {
		t.Error("expected a canonical path")
	}
}
